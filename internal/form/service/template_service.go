package service

import (
	"context"
	"fmt"
	"time"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/google/uuid"
)

// TemplateService 表单模板服务
type TemplateService struct {
	templateRepo *repository.TemplateRepository
}

// NewTemplateService 创建表单模板服务
func NewTemplateService(templateRepo *repository.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// List 获取模板列表
func (s *TemplateService) List(ctx context.Context, predefinedOnly bool) ([]entity.FormTemplate, error) {
	return s.templateRepo.List(ctx, predefinedOnly)
}

// Get 获取模板详情
func (s *TemplateService) Get(ctx context.Context, id string) (*entity.FormTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

// Create 创建模板
func (s *TemplateService) Create(ctx context.Context, name string, fields entity.FieldList, isPredefined bool, createdBy string) (*entity.FormTemplate, error) {
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	if fields == nil {
		fields = entity.FieldList{}
	}
	for i := range fields {
		if fields[i].ID == "" {
			fields[i].ID = generateFieldID()
		}
		fields[i].Normalize()
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	tmpl := &entity.FormTemplate{
		ID:           generateID(),
		Name:         name,
		Fields:       fields,
		IsPredefined: isPredefined,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.templateRepo.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tmpl, nil
}

// UpdateTemplateRequest 模板更新参数，nil字段表示不修改
type UpdateTemplateRequest struct {
	Name         *string           `json:"name"`
	Fields       *entity.FieldList `json:"fields"`
	IsPredefined *bool             `json:"is_predefined"`
}

// Update 更新模板
func (s *TemplateService) Update(ctx context.Context, id string, req UpdateTemplateRequest) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("template name is required")
		}
		tmpl.Name = *req.Name
	}
	if req.IsPredefined != nil {
		tmpl.IsPredefined = *req.IsPredefined
	}
	if req.Fields != nil {
		fields := *req.Fields
		for i := range fields {
			if fields[i].ID == "" {
				fields[i].ID = generateFieldID()
			}
			fields[i].Normalize()
		}
		if err := fields.Validate(); err != nil {
			return nil, err
		}
		tmpl.Fields = fields
	}

	tmpl.UpdatedAt = time.Now()
	if err := s.templateRepo.Update(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tmpl, nil
}

// Delete 删除模板，级联删除其提交与批注
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	return s.templateRepo.Delete(ctx, id)
}

// Duplicate 复制模板，副本始终为自定义模板
func (s *TemplateService) Duplicate(ctx context.Context, id, createdBy string) (*entity.FormTemplate, error) {
	src, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(entity.FieldList, len(src.Fields))
	copy(fields, src.Fields)

	now := time.Now()
	dup := &entity.FormTemplate{
		ID:           generateID(),
		Name:         src.Name + " (Copy)",
		Fields:       fields,
		IsPredefined: false,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.templateRepo.Create(ctx, dup); err != nil {
		return nil, fmt.Errorf("duplicate template: %w", err)
	}
	return dup, nil
}

// AddField 为模板追加字段，字段ID由服务端分配
func (s *TemplateService) AddField(ctx context.Context, templateID string, field entity.Field) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	field.ID = generateFieldID()
	field.Normalize()
	if field.Type == entity.FieldDropdown && len(field.Options) == 0 {
		field.AddOption()
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}

	tmpl.Fields = append(tmpl.Fields, field)
	return tmpl, s.save(ctx, tmpl)
}

// UpdateField 更新字段，字段ID创建后不可改
func (s *TemplateService) UpdateField(ctx context.Context, templateID, fieldID string, field entity.Field) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	idx := tmpl.Fields.Find(fieldID)
	if idx < 0 {
		return nil, entity.ErrFieldNotFound
	}

	field.ID = fieldID
	field.Normalize()
	if err := field.Validate(); err != nil {
		return nil, err
	}

	tmpl.Fields[idx] = field
	return tmpl, s.save(ctx, tmpl)
}

// RemoveField 删除字段
func (s *TemplateService) RemoveField(ctx context.Context, templateID, fieldID string) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	idx := tmpl.Fields.Find(fieldID)
	if idx < 0 {
		return nil, entity.ErrFieldNotFound
	}

	tmpl.Fields = append(tmpl.Fields[:idx], tmpl.Fields[idx+1:]...)
	return tmpl, s.save(ctx, tmpl)
}

// MoveField 上移或下移字段，到达边界时不报错
func (s *TemplateService) MoveField(ctx context.Context, templateID, fieldID string, up bool) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if err := tmpl.Fields.Move(fieldID, up); err != nil {
		return nil, err
	}
	return tmpl, s.save(ctx, tmpl)
}

// AddOption 为下拉字段追加默认选项
func (s *TemplateService) AddOption(ctx context.Context, templateID, fieldID string) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	idx := tmpl.Fields.Find(fieldID)
	if idx < 0 {
		return nil, entity.ErrFieldNotFound
	}
	field := &tmpl.Fields[idx]
	if field.Type != entity.FieldDropdown {
		return nil, fmt.Errorf("field %s is not a dropdown", fieldID)
	}

	field.AddOption()
	return tmpl, s.save(ctx, tmpl)
}

// RemoveOption 删除下拉选项，最后一个选项不可删除
func (s *TemplateService) RemoveOption(ctx context.Context, templateID, fieldID, value string) (*entity.FormTemplate, error) {
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	idx := tmpl.Fields.Find(fieldID)
	if idx < 0 {
		return nil, entity.ErrFieldNotFound
	}

	if err := tmpl.Fields[idx].RemoveOption(value); err != nil {
		return nil, err
	}
	return tmpl, s.save(ctx, tmpl)
}

func (s *TemplateService) save(ctx context.Context, tmpl *entity.FormTemplate) error {
	tmpl.UpdatedAt = time.Now()
	if err := s.templateRepo.Update(ctx, tmpl); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func generateFieldID() string {
	return "fld_" + uuid.New().String()[:8]
}
