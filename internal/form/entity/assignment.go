package entity

import (
	"time"
)

// AdminAssignment 管理员与用户的分配关系边
//
// (AdminID, UserID) is unique at the database level; the invite flow
// relies on ON CONFLICT DO NOTHING against this index.
type AdminAssignment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	AdminID   string    `json:"admin_id" gorm:"size:32;not null;uniqueIndex:idx_assignments_admin_user"`
	UserID    string    `json:"user_id" gorm:"size:32;not null;uniqueIndex:idx_assignments_admin_user"`
	CreatedAt time.Time `json:"created_at"`
}

func (AdminAssignment) TableName() string {
	return "admin_assignments"
}
