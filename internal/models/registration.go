package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationStatus represents the review state of a registration request
type RegistrationStatus int

const (
	RegistrationPending  RegistrationStatus = 1
	RegistrationApproved RegistrationStatus = 2
	RegistrationRejected RegistrationStatus = 3
)

// MarshalJSON converts RegistrationStatus to string for JSON
func (rs RegistrationStatus) MarshalJSON() ([]byte, error) {
	var s string
	switch rs {
	case RegistrationPending:
		s = "pending"
	case RegistrationApproved:
		s = "approved"
	case RegistrationRejected:
		s = "rejected"
	default:
		s = "unknown"
	}
	return json.Marshal(s)
}

// UnmarshalJSON converts string back to RegistrationStatus for JSON parsing
func (rs *RegistrationStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*rs = RegistrationStatus(i)
		return nil
	}
	switch s {
	case "pending":
		*rs = RegistrationPending
	case "approved":
		*rs = RegistrationApproved
	case "rejected":
		*rs = RegistrationRejected
	default:
		*rs = RegistrationPending
	}
	return nil
}

// RegistrationRequest represents a pending approval for a new Telegram user
type RegistrationRequest struct {
	ID              string             `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID          string             `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	User            *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status          RegistrationStatus `gorm:"column:status;default:1;index" json:"status"`
	RequestedAt     time.Time          `gorm:"column:requested_at" json:"requested_at"`
	ReviewedBy      *string            `gorm:"column:reviewed_by;size:36" json:"reviewed_by"`
	ReviewedAt      *time.Time         `gorm:"column:reviewed_at" json:"reviewed_at"`
	RejectionReason string             `gorm:"column:rejection_reason;size:500" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (r *RegistrationRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now()
	}
	return nil
}

func (RegistrationRequest) TableName() string {
	return "registration_requests"
}
