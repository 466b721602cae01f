package entity

import (
	"time"
)

// AdminNote 管理员批注（只增不改）
type AdminNote struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	SubmissionID string    `json:"submission_id" gorm:"size:32;not null;index"`
	AdminID      string    `json:"admin_id" gorm:"size:32;not null"`
	Note         string    `json:"note" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`

	// 查询时从 users 联出来，不落库
	AdminName string `json:"admin_name,omitempty" gorm:"->;-:migration"`
}

func (AdminNote) TableName() string {
	return "admin_notes"
}
