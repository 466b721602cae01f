package entity

import (
	"time"
)

// 角色常量，按权限从低到高
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// 管理员数据访问级别（存于 metadata.access_level）
const (
	AccessFull    = "full"
	AccessPartial = "partial"
)

// roleRank 角色等级
var roleRank = map[string]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// RoleAtLeast reports whether role meets or exceeds min in the
// user < admin < super_admin hierarchy. Unknown roles rank below user.
func RoleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min]
}

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// User 账号实体
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Email        string    `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:128;not null"`
	Name         string    `json:"name" gorm:"size:64;not null"`
	Role         string    `json:"role" gorm:"size:16;not null;default:user"`
	Metadata     JSONB     `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	AvatarURL    string    `json:"avatar_url" gorm:"size:512"`
	Status       string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// AccessLevel returns the admin's data access level from metadata.
// Missing or unknown values default to full.
func (u *User) AccessLevel() string {
	if u.Metadata != nil {
		if v, ok := u.Metadata["access_level"].(string); ok && v == AccessPartial {
			return AccessPartial
		}
	}
	return AccessFull
}

// SeesSensitive reports whether this account may see sensitive field
// values. Super-admins and full-access admins do; partial admins do not.
func (u *User) SeesSensitive() bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	return u.AccessLevel() == AccessFull
}
