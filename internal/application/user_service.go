package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

// UserService manages accounts and their role assignments.
type UserService struct {
	Users  repo.UserRepository
	Roles  repo.RoleRepository
	Hasher PasswordHasher
	Logger *logrus.Logger
	Audit  audit.Recorder
}

func NewUserService(users repo.UserRepository, roles repo.RoleRepository, hasher PasswordHasher, logger *logrus.Logger, rec audit.Recorder) *UserService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &UserService{Users: users, Roles: roles, Hasher: hasher, Logger: logger, Audit: rec}
}

// CreateUserInput creates an active account unless IsActive says otherwise.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	IsActive *bool
}

// UpdateUserInput carries optional fields; nil leaves the value unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	IsActive *bool
}

func userEvent(action audit.Action, userID int64, md map[string]any) audit.Event {
	return audit.Event{Action: action, TargetType: "user", TargetID: userID, Metadata: md}
}

func userError(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrEmailTaken
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	u, err := createAccount(ctx, s.Users, s.Hasher, in.Name, in.Email, in.Password, active)
	if err != nil {
		return nil, err
	}
	u.Roles = []entity.Role{}
	s.Audit.Record(ctx, userEvent(audit.UserCreated, u.ID, map[string]any{"email": u.Email}))
	return u, nil
}

func (s *UserService) FindAll(ctx context.Context) ([]entity.User, error) {
	users, err := s.Users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

// FindByID returns the user with roles and permissions loaded.
func (s *UserService) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Users.FindByID(ctx, id, true)
	if err != nil {
		return nil, userError("find user", err)
	}
	if u.Roles == nil {
		u.Roles = []entity.Role{}
	}
	return u, nil
}

// Update applies the supplied fields. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := []string{}
	if err := applyName(&u.Name, in.Name); err != nil {
		return nil, err
	}
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		u.Email = email
		fields = append(fields, "email")
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, ErrPasswordRequired
		}
		digest, err := s.Hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.Password = digest
		fields = append(fields, "password")
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
		fields = append(fields, "is_active")
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, userError("update user", err)
	}
	s.Audit.Record(ctx, userEvent(audit.UserUpdated, id, map[string]any{"fields": fields}))
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		return userError("delete user", err)
	}
	s.Audit.Record(ctx, userEvent(audit.UserDeleted, id, nil))
	return nil
}

// AssignRoles replaces the user's role set. Every id must exist.
func (s *UserService) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) (*entity.User, error) {
	if _, err := s.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	ids := uniqueIDs(roleIDs)
	if ids == nil {
		ids = []int64{}
	}
	if len(ids) > 0 {
		found, err := s.Roles.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("find roles: %w", err)
		}
		if len(found) != len(ids) {
			return nil, ErrSomeRolesNotFound
		}
	}
	if err := s.Users.ReplaceRoles(ctx, userID, ids); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrReference):
			return nil, ErrSomeRolesNotFound
		}
		return nil, fmt.Errorf("assign roles: %w", err)
	}
	s.Audit.Record(ctx, userEvent(audit.RolesAssigned, userID, map[string]any{"role_ids": ids}))
	return s.FindByID(ctx, userID)
}

func (s *UserService) AddRole(ctx context.Context, userID, roleID int64) (*entity.User, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Roles.FindByID(ctx, roleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	if u.HasRole(roleID) {
		return nil, ErrRoleAlreadyAssigned
	}
	if err := s.Users.AddRole(ctx, userID, roleID); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrRoleAlreadyAssigned
		case errors.Is(err, repo.ErrReference):
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("add role: %w", err)
	}
	s.Audit.Record(ctx, userEvent(audit.RoleAdded, userID, map[string]any{"role_id": roleID}))
	return s.FindByID(ctx, userID)
}

func (s *UserService) RemoveRole(ctx context.Context, userID, roleID int64) (*entity.User, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Roles) == 0 {
		return nil, ErrUserHasNoRoles
	}
	if !u.HasRole(roleID) {
		return nil, ErrRoleNotAssigned
	}
	if err := s.Users.RemoveRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotAssigned
		}
		return nil, fmt.Errorf("remove role: %w", err)
	}
	s.Audit.Record(ctx, userEvent(audit.RoleRemoved, userID, map[string]any{"role_id": roleID}))
	return s.FindByID(ctx, userID)
}

func (s *UserService) GetUserRoles(ctx context.Context, userID int64) ([]entity.Role, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Roles, nil
}
