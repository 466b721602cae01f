package entity

import (
	"time"
)

// FormTemplate 表单模板
//
// Fields is the ordered field list; order defines render and review order.
type FormTemplate struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Fields       FieldList `json:"fields" gorm:"type:jsonb;not null;default:'[]'"`
	IsPredefined bool      `json:"is_predefined" gorm:"not null;default:false"`
	CreatedBy    string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FormTemplate) TableName() string {
	return "form_templates"
}
