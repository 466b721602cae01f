package handler

import (
	"errors"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/form/service"
	"github.com/gin-gonic/gin"
)

// TemplateHandler 表单模板处理器
type TemplateHandler struct {
	templateService *service.TemplateService
}

// NewTemplateHandler 创建表单模板处理器
func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// List 获取模板列表
// GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	predefinedOnly := c.Query("predefined") == "true"
	templates, err := h.templateService.List(c.Request.Context(), predefinedOnly)
	if err != nil {
		InternalError(c, "获取模板列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": templates})
}

// Get 获取模板详情
// GET /api/v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.templateService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Name         string           `json:"name" binding:"required"`
	Fields       entity.FieldList `json:"fields"`
	IsPredefined bool             `json:"is_predefined"`
}

// Create 创建模板
// POST /api/v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	tmpl, err := h.templateService.Create(c.Request.Context(), req.Name, req.Fields, req.IsPredefined, GetUserID(c))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, tmpl)
}

// Update 更新模板
// PUT /api/v1/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	tmpl, err := h.templateService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// Delete 删除模板
// DELETE /api/v1/templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.templateService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, gin.H{"message": "deleted"})
}

// Duplicate 复制模板
// POST /api/v1/templates/:id/duplicate
func (h *TemplateHandler) Duplicate(c *gin.Context) {
	tmpl, err := h.templateService.Duplicate(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Created(c, tmpl)
}

// AddField 追加字段
// POST /api/v1/templates/:id/fields
func (h *TemplateHandler) AddField(c *gin.Context) {
	var field entity.Field
	if err := c.ShouldBindJSON(&field); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	tmpl, err := h.templateService.AddField(c.Request.Context(), c.Param("id"), field)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// UpdateField 更新字段
// PUT /api/v1/templates/:id/fields/:fieldId
func (h *TemplateHandler) UpdateField(c *gin.Context) {
	var field entity.Field
	if err := c.ShouldBindJSON(&field); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	tmpl, err := h.templateService.UpdateField(c.Request.Context(), c.Param("id"), c.Param("fieldId"), field)
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// RemoveField 删除字段
// DELETE /api/v1/templates/:id/fields/:fieldId
func (h *TemplateHandler) RemoveField(c *gin.Context) {
	tmpl, err := h.templateService.RemoveField(c.Request.Context(), c.Param("id"), c.Param("fieldId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// MoveFieldRequest 字段移动请求
type MoveFieldRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// MoveField 上移/下移字段
// POST /api/v1/templates/:id/fields/:fieldId/move
func (h *TemplateHandler) MoveField(c *gin.Context) {
	var req MoveFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "无效的请求参数: "+err.Error())
		return
	}

	tmpl, err := h.templateService.MoveField(c.Request.Context(), c.Param("id"), c.Param("fieldId"), req.Direction == "up")
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// AddOption 追加下拉选项
// POST /api/v1/templates/:id/fields/:fieldId/options
func (h *TemplateHandler) AddOption(c *gin.Context) {
	tmpl, err := h.templateService.AddOption(c.Request.Context(), c.Param("id"), c.Param("fieldId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

// RemoveOption 删除下拉选项
// DELETE /api/v1/templates/:id/fields/:fieldId/options/:value
func (h *TemplateHandler) RemoveOption(c *gin.Context) {
	tmpl, err := h.templateService.RemoveOption(c.Request.Context(), c.Param("id"), c.Param("fieldId"), c.Param("value"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	Success(c, tmpl)
}

func (h *TemplateHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "模板不存在")
	case errors.Is(err, entity.ErrFieldNotFound):
		NotFound(c, "字段不存在")
	case errors.Is(err, entity.ErrLastOption):
		Conflict(c, "下拉字段至少保留一个选项")
	default:
		BadRequest(c, err.Error())
	}
}
