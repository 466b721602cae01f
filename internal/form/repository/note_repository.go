package repository

import (
	"context"

	"github.com/formkite/formkite/internal/form/entity"
	"gorm.io/gorm"
)

// NoteRepository 批注仓库
//
// Notes are append-only: there is no update or delete method here on
// purpose.
type NoteRepository struct {
	db *gorm.DB
}

// NewNoteRepository 创建批注仓库
func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create 追加批注
func (r *NoteRepository) Create(ctx context.Context, note *entity.AdminNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// ListBySubmission 按创建时间倒序列出某提交的批注，附带管理员姓名
func (r *NoteRepository) ListBySubmission(ctx context.Context, submissionID string) ([]entity.AdminNote, error) {
	var notes []entity.AdminNote
	err := r.db.WithContext(ctx).
		Table("admin_notes").
		Select("admin_notes.*, users.name AS admin_name").
		Joins("LEFT JOIN users ON users.id = admin_notes.admin_id").
		Where("admin_notes.submission_id = ?", submissionID).
		Order("admin_notes.created_at DESC").
		Scan(&notes).Error
	return notes, err
}
