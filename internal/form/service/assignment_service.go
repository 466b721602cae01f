package service

import (
	"context"
	"fmt"
	"time"

	"github.com/formkite/formkite/internal/form/entity"
	"github.com/formkite/formkite/internal/form/repository"
	"github.com/formkite/formkite/internal/shared/invitecode"
)

// AssignmentService 管理员分配与邀请服务
type AssignmentService struct {
	assignmentRepo *repository.AssignmentRepository
	userRepo       *repository.UserRepository
}

// NewAssignmentService 创建分配服务
func NewAssignmentService(assignmentRepo *repository.AssignmentRepository, userRepo *repository.UserRepository) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
	}
}

// InviteCode 生成管理员的邀请码
func (s *AssignmentService) InviteCode(adminID string) string {
	return invitecode.Encode(adminID)
}

// ResolveInvite 解析邀请码并返回对应的管理员。邀请码指向的账号
// 必须具有管理员及以上角色。
func (s *AssignmentService) ResolveInvite(ctx context.Context, code string) (*entity.User, error) {
	adminID, err := invitecode.Decode(code)
	if err != nil {
		return nil, invitecode.ErrInvalidCode
	}
	admin, err := s.userRepo.FindByID(ctx, adminID)
	if err == repository.ErrNotFound {
		return nil, invitecode.ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	if !entity.RoleAtLeast(admin.Role, entity.RoleAdmin) {
		return nil, invitecode.ErrInvalidCode
	}
	return admin, nil
}

// AcceptInvite 接受邀请并建立分配关系。重复接受是幂等的，返回
// created=false。只有普通用户账号可以被分配。
func (s *AssignmentService) AcceptInvite(ctx context.Context, code string, visitor *entity.User) (bool, *entity.User, error) {
	admin, err := s.ResolveInvite(ctx, code)
	if err != nil {
		return false, nil, err
	}
	if visitor.Role != entity.RoleUser {
		return false, nil, fmt.Errorf("only user accounts can accept an invite")
	}

	created, err := s.assignmentRepo.Create(ctx, &entity.AdminAssignment{
		ID:        generateID(),
		AdminID:   admin.ID,
		UserID:    visitor.ID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return false, nil, err
	}
	return created, admin, nil
}

// Assign 建立一条 (admin, user) 分配关系
func (s *AssignmentService) Assign(ctx context.Context, adminID, userID string) (*entity.AdminAssignment, error) {
	admin, err := s.userRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !entity.RoleAtLeast(admin.Role, entity.RoleAdmin) {
		return nil, fmt.Errorf("account %s is not an admin", adminID)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != entity.RoleUser {
		return nil, fmt.Errorf("account %s is not a user", userID)
	}

	edge := &entity.AdminAssignment{
		ID:        generateID(),
		AdminID:   adminID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	created, err := s.assignmentRepo.Create(ctx, edge)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyAssigned
	}
	return edge, nil
}

// Unassign 删除一条分配关系
func (s *AssignmentService) Unassign(ctx context.Context, id string) error {
	return s.assignmentRepo.Delete(ctx, id)
}

// AdminGroup 一个管理员及其名下的用户
type AdminGroup struct {
	Admin entity.User              `json:"admin"`
	Users []entity.User            `json:"users"`
	Edges []entity.AdminAssignment `json:"edges"`
}

// ListGrouped 按管理员分组列出全部分配关系
func (s *AssignmentService) ListGrouped(ctx context.Context) ([]AdminGroup, error) {
	edges, err := s.assignmentRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx, "")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	groups := make(map[string]*AdminGroup)
	var order []string
	for _, edge := range edges {
		g, ok := groups[edge.AdminID]
		if !ok {
			admin, found := byID[edge.AdminID]
			if !found {
				continue
			}
			g = &AdminGroup{Admin: admin}
			groups[edge.AdminID] = g
			order = append(order, edge.AdminID)
		}
		if u, found := byID[edge.UserID]; found {
			g.Users = append(g.Users, u)
			g.Edges = append(g.Edges, edge)
		}
	}

	// 没有任何分配的管理员也要出现在列表里
	for _, u := range users {
		if u.Role != entity.RoleAdmin {
			continue
		}
		if _, ok := groups[u.ID]; !ok {
			groups[u.ID] = &AdminGroup{Admin: u}
			order = append(order, u.ID)
		}
	}

	out := make([]AdminGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *groups[id])
	}
	return out, nil
}

// ListUsers 列出用户，role 为空时返回全部
func (s *AssignmentService) ListUsers(ctx context.Context, role string) ([]entity.User, error) {
	if role != "" && !entity.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.userRepo.List(ctx, role)
}

// SetRole 修改账号角色。降级离开管理员角色时会级联删除其名下的
// 分配关系。
func (s *AssignmentService) SetRole(ctx context.Context, userID, role string) (*entity.User, error) {
	if !entity.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, userID)
}
