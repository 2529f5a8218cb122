package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedHasher struct{ err error }

func (h fixedHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "digest:" + plain, nil
}

func newSeeder(t *testing.T) (*Seeder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger, _ := test.NewNullLogger()
	s := New(db, fixedHasher{}, logger)
	s.Permissions = []PermissionSeed{
		{"list:user", "List users"},
		{"create:user", "Create users"},
	}
	return s, mock
}

func TestDefaultPermissionsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range DefaultPermissions {
		assert.False(t, seen[p.Name], p.Name)
		seen[p.Name] = true
		assert.Contains(t, p.Name, ":")
	}
	assert.True(t, seen["delete:permission"])
}

func TestRunWritesEverythingInOneTransaction(t *testing.T) {
	s, mock := newSeeder(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO permissions").
		WithArgs("list:user", "List users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO permissions").
		WithArgs("create:user", "Create users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("INSERT INTO roles").
		WithArgs(AdminRole, adminDescription).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO role_permissions").WithArgs(int64(7), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO role_permissions").WithArgs(int64(7), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("user@example.com", "digest:Password123!", AdminName).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs(int64(42), int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Run(context.Background(), "user@example.com", "Password123!")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.PermissionIDs)
	assert.Equal(t, int64(7), res.RoleID)
	assert.Equal(t, int64(42), res.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnFailure(t *testing.T) {
	s, mock := newSeeder(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO permissions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO permissions").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := s.Run(context.Background(), "user@example.com", "Password123!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create:user")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRejectsMissingCredentials(t *testing.T) {
	s, mock := newSeeder(t)

	_, err := s.Run(context.Background(), "", "Password123!")
	assert.Error(t, err)

	s.Hasher = fixedHasher{err: errors.New("hash failed")}
	_, err = s.Run(context.Background(), "user@example.com", "Password123!")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
