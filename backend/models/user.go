package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole rejects anything that is not a known role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"type:varchar(16);default:'student';not null" json:"role"`
}

type LoginHistory struct {
	gorm.Model
	UserID    uint `gorm:"index"`
	LoginTime time.Time
}
