package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin represents a panel administrator account
type Admin struct {
	ID           string `gorm:"column:id;primaryKey;size:36" json:"id"`
	Username     string `gorm:"column:username;uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Email        string `gorm:"column:email;size:255" json:"email"`
	FullName     string `gorm:"column:full_name;size:255" json:"full_name"`
	IsActive     bool   `gorm:"column:is_active;default:true" json:"is_active"`
	IsSuperAdmin bool   `gorm:"column:is_super_admin;default:false" json:"is_super_admin"`

	// 2FA fields
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:255" json:"-"`

	LastLogin *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (Admin) TableName() string {
	return "admins"
}
