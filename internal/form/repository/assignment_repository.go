package repository

import (
	"context"
	"errors"

	"github.com/formkite/formkite/internal/form/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRepository 管理员分配关系仓库
type AssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository 创建分配关系仓库
func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the (admin, user) edge. Returns created=false when the
// edge already exists; the unique index makes concurrent double-inserts
// collapse to a single row instead of racing a check-then-insert.
func (r *AssignmentRepository) Create(ctx context.Context, edge *entity.AdminAssignment) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete 删除一条分配关系
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.AdminAssignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID 根据ID查找分配关系
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*entity.AdminAssignment, error) {
	var edge entity.AdminAssignment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}

// Exists 判断 (admin, user) 边是否已存在
func (r *AssignmentRepository) Exists(ctx context.Context, adminID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AdminAssignment{}).
		Where("admin_id = ? AND user_id = ?", adminID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListByAdmin 列出某管理员名下的全部分配关系
func (r *AssignmentRepository) ListByAdmin(ctx context.Context, adminID string) ([]entity.AdminAssignment, error) {
	var edges []entity.AdminAssignment
	err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("created_at ASC").
		Find(&edges).Error
	return edges, err
}

// ListAll 列出全部分配关系
func (r *AssignmentRepository) ListAll(ctx context.Context) ([]entity.AdminAssignment, error) {
	var edges []entity.AdminAssignment
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&edges).Error
	return edges, err
}

// AssignedUserIDs 返回某管理员被分配的用户ID列表
func (r *AssignmentRepository) AssignedUserIDs(ctx context.Context, adminID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.AdminAssignment{}).
		Where("admin_id = ?", adminID).
		Pluck("user_id", &ids).Error
	return ids, err
}
