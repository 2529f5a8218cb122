package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/internal/application"
	"github.com/oksasatya/go-rbac-auth/pkg/response"
)

type RoleHandler struct {
	Svc    *application.RoleService
	Logger *logrus.Logger
}

func NewRoleHandler(svc *application.RoleService, logger *logrus.Logger) *RoleHandler {
	return &RoleHandler{Svc: svc, Logger: logger}
}

type createRoleRequest struct {
	Name          string  `json:"name" binding:"required,min=2,max=100"`
	Description   string  `json:"description" binding:"max=500"`
	PermissionIDs []int64 `json:"permission_ids" binding:"omitempty,dive,gt=0"`
}

type updateRoleRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	IsActive      *bool   `json:"is_active"`
	PermissionIDs []int64 `json:"permission_ids" binding:"omitempty,dive,gt=0"`
}

type assignPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" binding:"required,dive,gt=0"`
}

type createPermissionRequest struct {
	Name        string `json:"name" binding:"required,permname"`
	Description string `json:"description" binding:"max=500"`
}

type updatePermissionRequest struct {
	Name        *string `json:"name" binding:"omitempty,permname"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req createRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.Svc.CreateRole(c.Request.Context(), application.CreateRoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, role, "role created", nil)
}

func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.Svc.FindAllRoles(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, roles, "roles", map[string]any{"total": len(roles)})
}

func (h *RoleHandler) ListActive(c *gin.Context) {
	roles, err := h.Svc.FindActiveRoles(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, roles, "active roles", map[string]any{"total": len(roles)})
}

func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, err := h.Svc.FindRoleByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "role", nil)
}

func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.Svc.UpdateRole(c.Request.Context(), id, application.UpdateRoleInput{
		Name:          req.Name,
		Description:   req.Description,
		IsActive:      req.IsActive,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "role updated", nil)
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteRole(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "role deleted", nil)
}

func (h *RoleHandler) Toggle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, err := h.Svc.ToggleRoleStatus(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "role status toggled", nil)
}

func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	perms, err := h.Svc.GetRolePermissions(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, perms, "role permissions", nil)
}

func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignPermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.Svc.AssignPermissions(c.Request.Context(), id, req.PermissionIDs)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "permissions assigned", nil)
}

func (h *RoleHandler) AddPermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	permID, ok := pathID(c, "permissionId")
	if !ok {
		return
	}
	role, err := h.Svc.AddPermission(c.Request.Context(), id, permID)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "permission added", nil)
}

func (h *RoleHandler) RemovePermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	permID, ok := pathID(c, "permissionId")
	if !ok {
		return
	}
	role, err := h.Svc.RemovePermission(c.Request.Context(), id, permID)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, role, "permission removed", nil)
}

func (h *RoleHandler) CreatePermission(c *gin.Context) {
	var req createPermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.CreatePermission(c.Request.Context(), application.CreatePermissionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, p, "permission created", nil)
}

func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.Svc.FindAllPermissions(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, perms, "permissions", map[string]any{"total": len(perms)})
}

func (h *RoleHandler) GetPermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Svc.FindPermissionByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "permission", nil)
}

func (h *RoleHandler) UpdatePermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.UpdatePermission(c.Request.Context(), id, application.UpdatePermissionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "permission updated", nil)
}

func (h *RoleHandler) DeletePermission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeletePermission(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "permission deleted", nil)
}
