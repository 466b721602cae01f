package handler

import (
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/gin-gonic/gin"
)

// ReviewHandler 管理员审阅处理器
type ReviewHandler struct {
	submissionService *service.SubmissionService
	authService       *service.AuthService
}

// NewReviewHandler 创建审阅处理器
func NewReviewHandler(submissionService *service.SubmissionService, authService *service.AuthService) *ReviewHandler {
	return &ReviewHandler{
		submissionService: submissionService,
		authService:       authService,
	}
}

// viewer 加载当前登录账号（含 metadata 中的访问级别）
func (h *ReviewHandler) viewer(c *gin.Context) (*entity.User, bool) {
	user, err := h.authService.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		Unauthorized(c, "用户不存在")
		return nil, false
	}
	return user, true
}

// List 审阅队列
// GET /api/v1/admin/submissions
func (h *ReviewHandler) List(c *gin.Context) {
	user, ok := h.viewer(c)
	if !ok {
		return
	}

	page, pageSize := GetPagination(c)
	filter := repository.ReviewFilter{
		Status:     c.Query("status"),
		TemplateID: c.Query("template_id"),
		Page:       page,
		PageSize:   pageSize,
	}

	items, total, err := h.submissionService.ReviewList(c.Request.Context(), user, filter)
	if err != nil {
		InternalError(c, "获取提交列表失败: "+err.Error())
		return
	}

	Success(c, gin.H{
		"items": items,
		"pagination": Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}

// Export 导出审阅队列为xlsx
// GET /api/v1/admin/submissions/export
func (h *ReviewHandler) Export(c *gin.Context) {
	user, ok := h.viewer(c)
	if !ok {
		return
	}

	filter := repository.ReviewFilter{
		Status:     c.Query("status"),
		TemplateID: c.Query("template_id"),
	}

	f, filename, err := h.submissionService.Export(c.Request.Context(), user, filter)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败: "+err.Error())
	}
}

// Get 提交详情
// GET /api/v1/admin/submissions/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	user, ok := h.viewer(c)
	if !ok {
		return
	}

	detail, err := h.submissionService.GetReviewDetail(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, detail)
}

// ListNotes 批注列表
// GET /api/v1/admin/submissions/:id/notes
func (h *ReviewHandler) ListNotes(c *gin.Context) {
	user, ok := h.viewer(c)
	if !ok {
		return
	}

	notes, err := h.submissionService.ListNotes(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, gin.H{"items": notes})
}

// AddNoteRequest 追加批注请求
type AddNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

// AddNote 追加批注
// POST /api/v1/admin/submissions/:id/notes
func (h *ReviewHandler) AddNote(c *gin.Context) {
	user, ok := h.viewer(c)
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	note, err := h.submissionService.AddNote(c.Request.Context(), user, c.Param("id"), req.Note)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Created(c, note)
}

func (h *ReviewHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "提交不存在")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "无权查看该提交")
	default:
		InternalError(c, err.Error())
	}
}
