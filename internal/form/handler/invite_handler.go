package handler

import (
	"errors"

	"github.com/formkite/formkite/internal/form/service"
	"github.com/formkite/formkite/internal/shared/invitecode"
	"github.com/gin-gonic/gin"
)

// InviteHandler 邀请码处理器
type InviteHandler struct {
	assignmentService *service.AssignmentService
	authService       *service.AuthService
}

// NewInviteHandler 创建邀请码处理器
func NewInviteHandler(assignmentService *service.AssignmentService, authService *service.AuthService) *InviteHandler {
	return &InviteHandler{
		assignmentService: assignmentService,
		authService:       authService,
	}
}

// MyCode 获取当前管理员自己的邀请码
// GET /api/v1/admin/invite
func (h *InviteHandler) MyCode(c *gin.Context) {
	code := h.assignmentService.InviteCode(GetUserID(c))
	Success(c, gin.H{"invite_code": code})
}

// Resolve 解析邀请码，返回邀请人信息（无需登录）
// GET /api/v1/invite/:code
func (h *InviteHandler) Resolve(c *gin.Context) {
	admin, err := h.assignmentService.ResolveInvite(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, invitecode.ErrInvalidCode) {
			NotFound(c, "邀请码无效")
			return
		}
		InternalError(c, "解析邀请码失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"admin_id":   admin.ID,
		"admin_name": admin.Name,
	})
}

// Accept 接受邀请，建立分配关系（重复接受幂等）
// POST /api/v1/invite/:code/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	visitor, err := h.authService.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		Unauthorized(c, "用户不存在")
		return
	}

	created, admin, err := h.assignmentService.AcceptInvite(c.Request.Context(), c.Param("code"), visitor)
	if err != nil {
		if errors.Is(err, invitecode.ErrInvalidCode) {
			NotFound(c, "邀请码无效")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, gin.H{
		"created":    created,
		"admin_id":   admin.ID,
		"admin_name": admin.Name,
	})
}
