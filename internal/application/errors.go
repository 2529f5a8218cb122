package application

import "github.com/oksasatya/go-rbac-auth/pkg/apperror"

var (
	ErrInvalidCredentials = apperror.New(apperror.InvalidCredentials, "invalid credentials")
	ErrPrincipalNotFound  = apperror.New(apperror.Unauthorized, "user not found")

	ErrUserNotFound            = apperror.New(apperror.NotFound, "user not found")
	ErrRoleNotFound            = apperror.New(apperror.NotFound, "role not found")
	ErrPermissionNotFound      = apperror.New(apperror.NotFound, "permission not found")
	ErrSomeRolesNotFound       = apperror.New(apperror.NotFound, "some roles not found")
	ErrSomePermissionsNotFound = apperror.New(apperror.NotFound, "some permissions not found")
	ErrUserHasNoRoles          = apperror.New(apperror.NotFound, "user has no roles assigned")
	ErrRoleNotAssigned         = apperror.New(apperror.NotFound, "role is not assigned to user")
	ErrRoleHasNoPermissions    = apperror.New(apperror.NotFound, "role has no permissions assigned")
	ErrPermissionNotAssigned   = apperror.New(apperror.NotFound, "permission is not assigned to role")

	ErrEmailTaken                = apperror.New(apperror.Conflict, "email already in use")
	ErrRoleNameTaken             = apperror.New(apperror.Conflict, "role name already in use")
	ErrPermissionNameTaken       = apperror.New(apperror.Conflict, "permission name already in use")
	ErrRoleAlreadyAssigned       = apperror.New(apperror.Conflict, "role already assigned to user")
	ErrPermissionAlreadyAssigned = apperror.New(apperror.Conflict, "permission already assigned to role")

	ErrNameRequired     = apperror.New(apperror.Validation, "name must not be empty")
	ErrEmailRequired    = apperror.New(apperror.Validation, "email must not be empty")
	ErrPasswordRequired = apperror.New(apperror.Validation, "password must not be empty")
)
