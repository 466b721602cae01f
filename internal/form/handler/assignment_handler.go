package handler

import (
	"errors"

	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/gin-gonic/gin"
)

// AssignmentHandler 分配关系与用户管理处理器
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	authService       *service.AuthService
}

// NewAssignmentHandler 创建分配处理器
func NewAssignmentHandler(assignmentService *service.AssignmentService, authService *service.AuthService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		authService:       authService,
	}
}

// List 按管理员分组列出全部分配关系
// GET /api/v1/admin/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	groups, err := h.assignmentService.ListGrouped(c.Request.Context())
	if err != nil {
		InternalError(c, "获取分配列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": groups})
}

// AssignRequest 建立分配关系请求
type AssignRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

// Create 建立分配关系
// POST /api/v1/admin/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	edge, err := h.assignmentService.Assign(c.Request.Context(), req.AdminID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyAssigned):
			Conflict(c, "该用户已分配给此管理员")
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "账号不存在")
		default:
			BadRequest(c, err.Error())
		}
		return
	}
	Created(c, edge)
}

// Delete 删除分配关系
// DELETE /api/v1/admin/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignmentService.Unassign(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "分配关系不存在")
			return
		}
		InternalError(c, "删除分配关系失败: "+err.Error())
		return
	}
	Success(c, gin.H{"message": "deleted"})
}

// ListUsers 用户列表
// GET /api/v1/admin/users
func (h *AssignmentHandler) ListUsers(c *gin.Context) {
	users, err := h.assignmentService.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			BadRequest(c, "未知的角色")
			return
		}
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": users})
}

// SetRoleRequest 修改角色请求
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole 修改账号角色
// PUT /api/v1/admin/users/:id/role
func (h *AssignmentHandler) SetRole(c *gin.Context) {
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	user, err := h.assignmentService.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			BadRequest(c, "未知的角色")
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "账号不存在")
		default:
			InternalError(c, "修改角色失败: "+err.Error())
		}
		return
	}
	Success(c, user)
}
