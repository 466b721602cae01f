package repository

import (
	"context"
	"errors"

	"github.com/formkite/formkite/internal/form/entity"
	"gorm.io/gorm"
)

// TemplateRepository 表单模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建表单模板仓库
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.FormTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// FindByID 根据ID查找模板
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.FormTemplate, error) {
	var tpl entity.FormTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// List 列出模板；predefinedOnly 为 true 时只返回预置模板
func (r *TemplateRepository) List(ctx context.Context, predefinedOnly bool) ([]entity.FormTemplate, error) {
	var tpls []entity.FormTemplate
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if predefinedOnly {
		q = q.Where("is_predefined = ?", true)
	}
	err := q.Find(&tpls).Error
	return tpls, err
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.FormTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}

// Delete removes the template together with all submissions referencing it
// and their notes. This is the only delete path for templates.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl entity.FormTemplate
		if err := tx.Where("id = ?", id).First(&tpl).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("submission_id IN (?)",
			tx.Model(&entity.Submission{}).Select("id").Where("form_template_id = ?", id),
		).Delete(&entity.AdminNote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("form_template_id = ?", id).
			Delete(&entity.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tpl).Error
	})
}
