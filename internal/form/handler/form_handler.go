package handler

import (
	"errors"

	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/gin-gonic/gin"
)

// FormHandler 用户侧表单填写处理器
type FormHandler struct {
	submissionService *service.SubmissionService
}

// NewFormHandler 创建表单填写处理器
func NewFormHandler(submissionService *service.SubmissionService) *FormHandler {
	return &FormHandler{submissionService: submissionService}
}

// List 列出当前用户的所有表单及进度
// GET /api/v1/forms
func (h *FormHandler) List(c *gin.Context) {
	items, err := h.submissionService.Overview(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取表单列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// Get 渲染单个表单
// GET /api/v1/forms/:templateId
func (h *FormHandler) Get(c *gin.Context) {
	view, err := h.submissionService.RenderForm(c.Request.Context(), GetUserID(c), c.Param("templateId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "表单不存在")
			return
		}
		InternalError(c, "渲染表单失败: "+err.Error())
		return
	}
	Success(c, view)
}

// FormDataRequest 表单数据请求体
type FormDataRequest struct {
	FormData map[string]interface{} `json:"form_data"`
}

// SaveDraft 保存草稿
// PUT /api/v1/forms/:templateId/draft
func (h *FormHandler) SaveDraft(c *gin.Context) {
	var req FormDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	sub, err := h.submissionService.SaveDraft(c.Request.Context(), GetUserID(c), c.Param("templateId"), req.FormData)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, sub)
}

// Submit 提交表单
// POST /api/v1/forms/:templateId/submit
func (h *FormHandler) Submit(c *gin.Context) {
	var req FormDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), GetUserID(c), c.Param("templateId"), req.FormData)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, sub)
}

func (h *FormHandler) renderError(c *gin.Context, err error) {
	var valErr *service.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "表单不存在")
	case errors.Is(err, repository.ErrCompleted):
		Conflict(c, "表单已提交，不能再修改")
	case errors.As(err, &valErr):
		UnprocessableEntity(c, "必填项未填写", gin.H{"missing_fields": valErr.Missing})
	default:
		BadRequest(c, err.Error())
	}
}
