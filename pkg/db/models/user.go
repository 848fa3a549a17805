package models

import (
	"time"

	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"password_hash"`
	Role         enums.Role `gorm:"column:role;not null" json:"role"`
	IsVerified   bool       `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "users" }
