package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-rbac-auth/config"
	"github.com/oksasatya/go-rbac-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-rbac-auth/internal/infrastructure/seed"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	dsn := cfg.PostgresDSN()
	if err := postgres.RunMigrations(dsn, cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := seed.New(db, helpers.NewBcryptHasher(), logger).Run(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		logger.Fatalf("seed failed: %v", err)
	}
	logger.Infof("seeded %d permissions, role %s (id=%d), user %s (id=%d)",
		len(res.PermissionIDs), seed.AdminRole, res.RoleID, cfg.SeedAdminEmail, res.UserID)
}
