package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RouterConfig represents a MikroTik endpoint. Passwords and RADIUS
// secrets are stored encrypted; only one config is active at a time.
type RouterConfig struct {
	ID                 string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name               string     `gorm:"column:name;size:100;not null" json:"name"`
	Host               string     `gorm:"column:host;size:255;not null" json:"host"`
	Port               int        `gorm:"column:port;default:8728" json:"port"`
	Username           string     `gorm:"column:username;size:100;not null" json:"username"`
	Password           string     `gorm:"column:password;size:500" json:"-"`
	RadiusSecret       string     `gorm:"column:radius_secret;size:500" json:"-"`
	IsActive           bool       `gorm:"column:is_active;default:false;index" json:"is_active"`
	LastConnectionTest *time.Time `gorm:"column:last_connection_test" json:"last_connection_test"`
	LastTestOK         bool       `gorm:"column:last_test_ok;default:false" json:"last_test_ok"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (r *RouterConfig) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (RouterConfig) TableName() string {
	return "router_configs"
}
