package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Setting represents a key-value system setting. Values marked
// is_encrypted are stored AES-GCM encrypted and decrypted on read.
type Setting struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Key         string    `gorm:"column:key;size:100;uniqueIndex;not null" json:"key"`
	Value       string    `gorm:"column:value;type:text" json:"value"`
	Category    string    `gorm:"column:category;size:50;index" json:"category"`
	Description string    `gorm:"column:description;size:255" json:"description"`
	IsEncrypted bool      `gorm:"column:is_encrypted;default:false" json:"is_encrypted"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (Setting) TableName() string {
	return "settings"
}
