package model

import (
	"errors"
	"time"
)

// Role 平台只有两种角色：农户（卖方）与客户（买方）。
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleClient Role = "client"
)

func ToRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFarmer:
		return RoleFarmer, nil
	case RoleClient:
		return RoleClient, nil
	}
	return "", errors.New("invalid role")
}

// User 用户目录记录。核心组件只在建单时读它固化买卖双方的展示字段，
// 其余时候通过会话中的 Principal 传递身份。
type User struct {
	ID        string    `gorm:"size:64;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `gorm:"size:128;not null" json:"name"`
	Email        string `gorm:"size:128;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Contact      string `gorm:"size:64" json:"contact"`
	Role         Role   `gorm:"size:16;not null;index" json:"role"`
}

func (User) TableName() string { return "users" }
