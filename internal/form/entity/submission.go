package entity

import (
	"time"
)

// 提交状态。状态机只产生这两个值；pending/submitted/rejected 只出现在
// 前端筛选器里，为未来工作流预留，这里永远不会写入。
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Submission 某个用户对某个模板的一次填写记录
//
// (UserID, FormTemplateID) is unique: a user has at most one submission
// per template. Once Status is completed the form data is immutable.
type Submission struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	UserID         string    `json:"user_id" gorm:"size:32;not null;uniqueIndex:idx_submissions_user_template"`
	FormTemplateID string    `json:"form_template_id" gorm:"size:32;not null;uniqueIndex:idx_submissions_user_template"`
	FormData       JSONB     `json:"form_data" gorm:"type:jsonb;not null;default:'{}'"`
	Status         string    `json:"status" gorm:"size:16;not null;default:in_progress"`
	LastUpdated    time.Time `json:"last_updated"`
}

func (Submission) TableName() string {
	return "submissions"
}

// Completed reports whether the submission reached its terminal state.
func (s *Submission) Completed() bool {
	return s.Status == StatusCompleted
}
