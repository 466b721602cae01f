package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound  = errors.New("record not found")
	ErrCompleted = errors.New("submission is completed and read-only")
)

// Repositories 仓库集合
type Repositories struct {
	User       *UserRepository
	Template   *TemplateRepository
	Submission *SubmissionRepository
	Note       *NoteRepository
	Assignment *AssignmentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Template:   NewTemplateRepository(db),
		Submission: NewSubmissionRepository(db),
		Note:       NewNoteRepository(db),
		Assignment: NewAssignmentRepository(db),
	}
}
