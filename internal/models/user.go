package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus represents the lifecycle status of an end user
type UserStatus int

const (
	UserStatusPending  UserStatus = 1
	UserStatusApproved UserStatus = 2
	UserStatusRejected UserStatus = 3
	UserStatusActive   UserStatus = 4
	UserStatusInactive UserStatus = 5
)

func (us UserStatus) String() string {
	switch us {
	case UserStatusPending:
		return "pending"
	case UserStatusApproved:
		return "approved"
	case UserStatusRejected:
		return "rejected"
	case UserStatusActive:
		return "active"
	case UserStatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// MarshalJSON converts UserStatus to string for JSON
func (us UserStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(us.String())
}

// UnmarshalJSON converts string back to UserStatus for JSON parsing
func (us *UserStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as integer for backward compatibility
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*us = UserStatus(i)
		return nil
	}
	switch s {
	case "pending":
		*us = UserStatusPending
	case "approved":
		*us = UserStatusApproved
	case "rejected":
		*us = UserStatusRejected
	case "active":
		*us = UserStatusActive
	case "inactive":
		*us = UserStatusInactive
	default:
		*us = UserStatusPending
	}
	return nil
}

// CanUseVPN reports whether this status allows opening VPN sessions
func (us UserStatus) CanUseVPN() bool {
	return us == UserStatusApproved || us == UserStatusActive
}

// User represents an end user registered through the Telegram bot
type User struct {
	ID               string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	TelegramID       int64      `gorm:"column:telegram_id;uniqueIndex;not null" json:"telegram_id"`
	TelegramUsername string     `gorm:"column:telegram_username;size:100" json:"telegram_username"`
	FullName         string     `gorm:"column:full_name;size:255" json:"full_name"`
	Phone            string     `gorm:"column:phone;size:50" json:"phone"`
	Email            string     `gorm:"column:email;size:255" json:"email"`
	Status           UserStatus `gorm:"column:status;default:1;index" json:"status"`
	RejectedReason   string     `gorm:"column:rejected_reason;size:500" json:"rejected_reason,omitempty"`
	ApprovedBy       *string    `gorm:"column:approved_by;size:36" json:"approved_by"`
	ApprovedAt       *time.Time `gorm:"column:approved_at" json:"approved_at"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Settings *UserSetting          `gorm:"foreignKey:UserID" json:"settings,omitempty"`
	Accounts []UserMikrotikAccount `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// UserSetting holds per-user overrides for session handling
type UserSetting struct {
	ID                     string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID                 string    `gorm:"column:user_id;uniqueIndex;size:36;not null" json:"user_id"`
	FirewallRuleComment    string    `gorm:"column:firewall_rule_comment;size:255" json:"firewall_rule_comment"`
	ReminderIntervalHours  int       `gorm:"column:reminder_interval_hours;default:6" json:"reminder_interval_hours"`
	CustomNotificationText string    `gorm:"column:custom_notification_text;type:text" json:"custom_notification_text"`
	Language               string    `gorm:"column:language;size:8" json:"language"`
	RequireConfirmation    *bool     `gorm:"column:require_confirmation" json:"require_confirmation"`
	CreatedAt              time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (s *UserSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// UserMikrotikAccount binds a router credential to a user.
// A user may hold at most two accounts; enforced in the session service.
type UserMikrotikAccount struct {
	ID               string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	MikrotikUsername string    `gorm:"column:mikrotik_username;uniqueIndex;size:100;not null" json:"mikrotik_username"`
	IsActive         bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (a *UserMikrotikAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

func (UserSetting) TableName() string {
	return "user_settings"
}

func (UserMikrotikAccount) TableName() string {
	return "user_mikrotik_accounts"
}
