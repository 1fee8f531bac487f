package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionDelete     AuditAction = "delete"
	AuditActionLogin      AuditAction = "login"
	AuditActionLogout     AuditAction = "logout"
	AuditActionApprove    AuditAction = "approve"
	AuditActionReject     AuditAction = "reject"
	AuditActionDisconnect AuditAction = "disconnect"
	AuditActionExtend     AuditAction = "extend"
	AuditActionRestore    AuditAction = "restore"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID          string      `gorm:"column:id;primaryKey;size:36" json:"id"`
	AdminID     *string     `gorm:"column:admin_id;size:36;index" json:"admin_id"`
	Admin       *Admin      `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Username    string      `gorm:"column:username;size:100" json:"username"`
	Action      AuditAction `gorm:"column:action;size:50;not null;index" json:"action"`
	EntityType  string      `gorm:"column:entity_type;size:50;index" json:"entity_type"`
	EntityID    string      `gorm:"column:entity_id;size:36;index" json:"entity_id"`
	EntityName  string      `gorm:"column:entity_name;size:100" json:"entity_name"`
	Description string      `gorm:"column:description;size:500" json:"description"`
	IPAddress   string      `gorm:"column:ip_address;size:50" json:"ip_address"`
	UserAgent   string      `gorm:"column:user_agent;size:255" json:"user_agent"`
	CreatedAt   time.Time   `gorm:"column:created_at;index" json:"created_at"`
}

func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
