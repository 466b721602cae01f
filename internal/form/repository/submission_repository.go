package repository

import (
	"context"
	"errors"
	"time"

	"github.com/formkite/formkite/internal/form/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository 提交记录仓库
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提交记录仓库
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID 根据ID查找提交
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*entity.Submission, error) {
	var sub entity.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindByUserAndTemplate 查找 (user, template) 对应的提交，不存在返回 nil
func (r *SubmissionRepository) FindByUserAndTemplate(ctx context.Context, userID, templateID string) (*entity.Submission, error) {
	var sub entity.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND form_template_id = ?", userID, templateID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// ListByUser 列出某用户的全部提交
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]entity.Submission, error) {
	var subs []entity.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated DESC").
		Find(&subs).Error
	return subs, err
}

// SaveDraft persists in-progress form data for (user, template), creating
// the row on first write. Uniqueness of the pair is enforced by the
// database index; a concurrent first write falls back to updating the row
// the winner created. Returns ErrCompleted once the submission is
// completed.
func (r *SubmissionRepository) SaveDraft(ctx context.Context, candidate *entity.Submission) (*entity.Submission, bool, error) {
	return r.upsert(ctx, candidate, false)
}

// Complete persists form data with status=completed. The transition fires
// exactly once: a second call returns ErrCompleted.
func (r *SubmissionRepository) Complete(ctx context.Context, candidate *entity.Submission) (*entity.Submission, bool, error) {
	return r.upsert(ctx, candidate, true)
}

func (r *SubmissionRepository) upsert(ctx context.Context, candidate *entity.Submission, complete bool) (*entity.Submission, bool, error) {
	var (
		result  *entity.Submission
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serializes draft saves and submits on the same
		// submission so a slow save cannot overwrite a faster submit.
		existing, err := r.lockPair(tx, candidate.UserID, candidate.FormTemplateID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing == nil {
			candidate.Status = entity.StatusInProgress
			if complete {
				candidate.Status = entity.StatusCompleted
			}
			candidate.LastUpdated = time.Now()
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "form_template_id"}},
				DoNothing: true,
			}).Create(candidate)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				result = candidate
				created = true
				return nil
			}
			// Lost the insert race; the winner's row exists now.
			existing, err = r.lockPair(tx, candidate.UserID, candidate.FormTemplateID)
			if err != nil {
				return err
			}
		}
		if existing.Completed() {
			return ErrCompleted
		}
		existing.FormData = candidate.FormData
		if complete {
			existing.Status = entity.StatusCompleted
		}
		existing.LastUpdated = time.Now()
		if err := tx.Save(existing).Error; err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *SubmissionRepository) lockPair(tx *gorm.DB, userID, templateID string) (*entity.Submission, error) {
	var sub entity.Submission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND form_template_id = ?", userID, templateID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReviewItem 审阅列表中的一行（提交 + 用户与模板摘要）
type ReviewItem struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	FormTemplateID string       `json:"form_template_id"`
	FormData       entity.JSONB `json:"form_data" gorm:"type:jsonb"`
	Status         string       `json:"status"`
	LastUpdated    time.Time    `json:"last_updated"`
	UserEmail      string       `json:"user_email"`
	UserName       string       `json:"user_name"`
	TemplateName   string       `json:"template_name"`
}

// ReviewFilter 审阅列表过滤条件
type ReviewFilter struct {
	AdminID    string // 非空时只返回该管理员名下用户的提交
	Status     string
	TemplateID string
	Page       int
	PageSize   int
}

// ListForReview returns submissions visible in the review queue: only
// submissions by accounts whose role is "user", optionally scoped to one
// admin's assignment set.
func (r *SubmissionRepository) ListForReview(ctx context.Context, f ReviewFilter) ([]ReviewItem, int64, error) {
	q := r.db.WithContext(ctx).
		Table("submissions").
		Joins("JOIN users ON users.id = submissions.user_id AND users.role = ?", entity.RoleUser).
		Joins("JOIN form_templates ON form_templates.id = submissions.form_template_id")

	if f.AdminID != "" {
		q = q.Where("submissions.user_id IN (?)",
			r.db.Model(&entity.AdminAssignment{}).
				Select("user_id").Where("admin_id = ?", f.AdminID))
	}
	if f.Status != "" {
		q = q.Where("submissions.status = ?", f.Status)
	}
	if f.TemplateID != "" {
		q = q.Where("submissions.form_template_id = ?", f.TemplateID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]ReviewItem, 0)
	q = q.Select("submissions.*, users.email AS user_email, users.name AS user_name, form_templates.name AS template_name").
		Order("submissions.last_updated DESC")
	if f.PageSize > 0 {
		q = q.Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize)
	}
	if err := q.Scan(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
