package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists events into audit_logs. Used by the audit worker.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, e Event) error {
	md, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (action, actor_id, email, target_type, target_id, request_id, metadata, created_at)
		VALUES ($1, NULLIF($2::bigint, 0), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5::bigint, 0), NULLIF($6, ''), $7, $8)
	`, string(e.Action), e.ActorID, e.Email, e.TargetType, e.TargetID, e.RequestID, md, e.At)
	return err
}
