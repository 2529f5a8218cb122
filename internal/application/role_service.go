package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

// RoleService administers roles, permissions and the links between them.
type RoleService struct {
	Roles       repo.RoleRepository
	Permissions repo.PermissionRepository
	Logger      *logrus.Logger
	Audit       audit.Recorder
}

func NewRoleService(roles repo.RoleRepository, perms repo.PermissionRepository, logger *logrus.Logger, rec audit.Recorder) *RoleService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &RoleService{Roles: roles, Permissions: perms, Logger: logger, Audit: rec}
}

type CreateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []int64
}

// UpdateRoleInput carries optional fields. A nil PermissionIDs leaves the
// role's links untouched; an empty non-nil slice clears them.
type UpdateRoleInput struct {
	Name          *string
	Description   *string
	IsActive      *bool
	PermissionIDs []int64
}

type CreatePermissionInput struct {
	Name        string
	Description string
}

type UpdatePermissionInput struct {
	Name        *string
	Description *string
}

func roleEvent(action audit.Action, roleID int64, md map[string]any) audit.Event {
	return audit.Event{Action: action, TargetType: "role", TargetID: roleID, Metadata: md}
}

// resolvePermissions de-duplicates ids and fails unless every one exists.
func (s *RoleService) resolvePermissions(ctx context.Context, ids []int64) ([]int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := s.Permissions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	if len(found) != len(ids) {
		return nil, ErrSomePermissionsNotFound
	}
	return ids, nil
}

// roleError maps store errors for role writes.
func roleError(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrRoleNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrRoleNameTaken
	case errors.Is(err, repo.ErrReference):
		return ErrSomePermissionsNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *RoleService) CreateRole(ctx context.Context, in CreateRoleInput) (*entity.Role, error) {
	role := &entity.Role{IsActive: true}
	if err := applyName(&role.Name, &in.Name); err != nil {
		return nil, err
	}
	applyText(&role.Description, &in.Description)

	ids, err := s.resolvePermissions(ctx, in.PermissionIDs)
	if err != nil {
		return nil, err
	}
	if err := s.Roles.Create(ctx, role, ids); err != nil {
		return nil, roleError("create role", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.RoleCreated, role.ID, map[string]any{"name": role.Name, "permission_ids": ids}))
	return s.FindRoleByID(ctx, role.ID)
}

func (s *RoleService) FindAllRoles(ctx context.Context) ([]entity.Role, error) {
	roles, err := s.Roles.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) FindActiveRoles(ctx context.Context) ([]entity.Role, error) {
	roles, err := s.Roles.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("find active roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) FindRoleByID(ctx context.Context, id int64) (*entity.Role, error) {
	role, err := s.Roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	if role.Permissions == nil {
		role.Permissions = []entity.Permission{}
	}
	return role, nil
}

// UpdateRole applies only the supplied fields.
func (s *RoleService) UpdateRole(ctx context.Context, id int64, in UpdateRoleInput) (*entity.Role, error) {
	role, err := s.FindRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyName(&role.Name, in.Name); err != nil {
		return nil, err
	}
	applyText(&role.Description, in.Description)
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}

	var ids []int64
	if in.PermissionIDs != nil {
		if ids, err = s.resolvePermissions(ctx, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if err := s.Roles.Update(ctx, role, ids); err != nil {
		return nil, roleError("update role", err)
	}
	md := map[string]any{"name": role.Name}
	if ids != nil {
		md["permission_ids"] = ids
	}
	s.Audit.Record(ctx, roleEvent(audit.RoleUpdated, id, md))
	return s.FindRoleByID(ctx, id)
}

func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	if err := s.Roles.Delete(ctx, id); err != nil {
		return roleError("delete role", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.RoleDeleted, id, nil))
	return nil
}

// ToggleRoleStatus flips is_active and returns the updated role.
func (s *RoleService) ToggleRoleStatus(ctx context.Context, id int64) (*entity.Role, error) {
	role, err := s.FindRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role.IsActive = !role.IsActive
	if err := s.Roles.Update(ctx, role, nil); err != nil {
		return nil, roleError("toggle role", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.RoleToggled, id, map[string]any{"is_active": role.IsActive}))
	return role, nil
}

// AssignPermissions replaces the role's permission set.
func (s *RoleService) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*entity.Role, error) {
	if _, err := s.FindRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	ids, err := s.resolvePermissions(ctx, permissionIDs)
	if err != nil {
		return nil, err
	}
	if err := s.Roles.ReplacePermissions(ctx, roleID, ids); err != nil {
		return nil, roleError("assign permissions", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.PermissionsAssigned, roleID, map[string]any{"permission_ids": ids}))
	return s.FindRoleByID(ctx, roleID)
}

func (s *RoleService) AddPermission(ctx context.Context, roleID, permissionID int64) (*entity.Role, error) {
	role, err := s.FindRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.FindPermissionByID(ctx, permissionID); err != nil {
		return nil, err
	}
	if role.HasPermission(permissionID) {
		return nil, ErrPermissionAlreadyAssigned
	}
	if err := s.Roles.AddPermission(ctx, roleID, permissionID); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrPermissionAlreadyAssigned
		case errors.Is(err, repo.ErrReference):
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("add permission: %w", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.PermissionAdded, roleID, map[string]any{"permission_id": permissionID}))
	return s.FindRoleByID(ctx, roleID)
}

func (s *RoleService) RemovePermission(ctx context.Context, roleID, permissionID int64) (*entity.Role, error) {
	role, err := s.FindRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if len(role.Permissions) == 0 {
		return nil, ErrRoleHasNoPermissions
	}
	if !role.HasPermission(permissionID) {
		return nil, ErrPermissionNotAssigned
	}
	if err := s.Roles.RemovePermission(ctx, roleID, permissionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPermissionNotAssigned
		}
		return nil, fmt.Errorf("remove permission: %w", err)
	}
	s.Audit.Record(ctx, roleEvent(audit.PermissionRemoved, roleID, map[string]any{"permission_id": permissionID}))
	return s.FindRoleByID(ctx, roleID)
}

func (s *RoleService) GetRolePermissions(ctx context.Context, roleID int64) ([]entity.Permission, error) {
	role, err := s.FindRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return role.Permissions, nil
}

// Permission catalog.

func permissionError(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrPermissionNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrPermissionNameTaken
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func permissionEvent(action audit.Action, id int64, md map[string]any) audit.Event {
	return audit.Event{Action: action, TargetType: "permission", TargetID: id, Metadata: md}
}

func (s *RoleService) CreatePermission(ctx context.Context, in CreatePermissionInput) (*entity.Permission, error) {
	p := &entity.Permission{}
	if err := applyName(&p.Name, &in.Name); err != nil {
		return nil, err
	}
	applyText(&p.Description, &in.Description)
	if err := s.Permissions.Create(ctx, p); err != nil {
		return nil, permissionError("create permission", err)
	}
	s.Audit.Record(ctx, permissionEvent(audit.PermissionCreated, p.ID, map[string]any{"name": p.Name}))
	return p, nil
}

func (s *RoleService) FindAllPermissions(ctx context.Context) ([]entity.Permission, error) {
	ps, err := s.Permissions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	return ps, nil
}

func (s *RoleService) FindPermissionByID(ctx context.Context, id int64) (*entity.Permission, error) {
	p, err := s.Permissions.FindByID(ctx, id)
	if err != nil {
		return nil, permissionError("find permission", err)
	}
	return p, nil
}

func (s *RoleService) UpdatePermission(ctx context.Context, id int64, in UpdatePermissionInput) (*entity.Permission, error) {
	p, err := s.FindPermissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyName(&p.Name, in.Name); err != nil {
		return nil, err
	}
	applyText(&p.Description, in.Description)
	if err := s.Permissions.Update(ctx, p); err != nil {
		return nil, permissionError("update permission", err)
	}
	s.Audit.Record(ctx, permissionEvent(audit.PermissionUpdated, id, map[string]any{"name": p.Name}))
	return p, nil
}

func (s *RoleService) DeletePermission(ctx context.Context, id int64) error {
	if err := s.Permissions.Delete(ctx, id); err != nil {
		return permissionError("delete permission", err)
	}
	s.Audit.Record(ctx, permissionEvent(audit.PermissionDeleted, id, nil))
	return nil
}
