package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/internal/application"
	"github.com/oksasatya/go-rbac-auth/internal/interface/middleware"
	"github.com/oksasatya/go-rbac-auth/pkg/response"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	IsActive *bool  `json:"is_active"`
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=255"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,pwd"`
}

func (r updateUserRequest) input() application.UpdateUserInput {
	return application.UpdateUserInput{Name: r.Name, Email: r.Email, Password: r.Password}
}

// adminUpdateUserRequest also lets an administrator toggle is_active,
// which the profile endpoint does not expose.
type adminUpdateUserRequest struct {
	updateUserRequest
	IsActive *bool `json:"is_active"`
}

func (r adminUpdateUserRequest) input() application.UpdateUserInput {
	in := r.updateUserRequest.input()
	in.IsActive = r.IsActive
	return in
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" binding:"required,dive,gt=0"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, ok := middleware.Principal(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "profile", nil)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	u, ok := middleware.Principal(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.Svc.Update(c.Request.Context(), u.ID, req.input())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, updated, "profile updated", nil)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), application.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, u, "user created", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.FindAll(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "users", map[string]any{"total": len(users)})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.Svc.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "user", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req adminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "user deleted", nil)
}

func (h *UserHandler) GetRoles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roles, err := h.Svc.GetUserRoles(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, roles, "user roles", nil)
}

func (h *UserHandler) AssignRoles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRolesRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.AssignRoles(c.Request.Context(), id, req.RoleIDs)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "roles assigned", nil)
}

func (h *UserHandler) AddRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roleID, ok := pathID(c, "roleId")
	if !ok {
		return
	}
	u, err := h.Svc.AddRole(c.Request.Context(), id, roleID)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "role added", nil)
}

func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roleID, ok := pathID(c, "roleId")
	if !ok {
		return
	}
	u, err := h.Svc.RemoveRole(c.Request.Context(), id, roleID)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "role removed", nil)
}
