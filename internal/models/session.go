package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus represents the state of a VPN session.
// Lifecycle: requested -> connected -> (active | disconnected),
// active -> reminder_sent -> active, active -> expired | disconnected.
type SessionStatus int

const (
	SessionRequested    SessionStatus = 1
	SessionConnected    SessionStatus = 2
	SessionConfirmed    SessionStatus = 3
	SessionReminderSent SessionStatus = 4
	SessionActive       SessionStatus = 5
	SessionDisconnected SessionStatus = 6
	SessionExpired      SessionStatus = 7
)

// MarshalJSON converts SessionStatus to string for JSON
func (ss SessionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ss.String())
}

// UnmarshalJSON converts string back to SessionStatus for JSON parsing
func (ss *SessionStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*ss = SessionStatus(i)
		return nil
	}
	switch s {
	case "requested":
		*ss = SessionRequested
	case "connected":
		*ss = SessionConnected
	case "confirmed":
		*ss = SessionConfirmed
	case "reminder_sent":
		*ss = SessionReminderSent
	case "active":
		*ss = SessionActive
	case "disconnected":
		*ss = SessionDisconnected
	case "expired":
		*ss = SessionExpired
	default:
		*ss = SessionRequested
	}
	return nil
}

func (ss SessionStatus) String() string {
	switch ss {
	case SessionRequested:
		return "requested"
	case SessionConnected:
		return "connected"
	case SessionConfirmed:
		return "confirmed"
	case SessionReminderSent:
		return "reminder_sent"
	case SessionActive:
		return "active"
	case SessionDisconnected:
		return "disconnected"
	case SessionExpired:
		return "expired"
	}
	return "unknown"
}

// ParseSessionStatus maps a status name onto its enum value
func ParseSessionStatus(s string) (SessionStatus, bool) {
	for ss := SessionRequested; ss <= SessionExpired; ss++ {
		if ss.String() == s {
			return ss, true
		}
	}
	return 0, false
}

// IsTerminal reports whether the session reached a final state
func (ss SessionStatus) IsTerminal() bool {
	return ss == SessionDisconnected || ss == SessionExpired
}

// IsLive reports whether the session counts as an established connection
// (confirmed by the user or running without confirmation required)
func (ss SessionStatus) IsLive() bool {
	switch ss {
	case SessionConfirmed, SessionReminderSent, SessionActive:
		return true
	}
	return false
}

// VPNSession represents one VPN connection lifecycle for a user account
type VPNSession struct {
	ID                string        `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID            string        `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	User              *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MikrotikUsername  string        `gorm:"column:mikrotik_username;size:100;not null;index" json:"mikrotik_username"`
	MikrotikSessionID string        `gorm:"column:mikrotik_session_id;size:100" json:"mikrotik_session_id"`
	Status            SessionStatus `gorm:"column:status;default:1;index" json:"status"`
	ConnectedAt       *time.Time    `gorm:"column:connected_at" json:"connected_at"`
	ConfirmedAt       *time.Time    `gorm:"column:confirmed_at" json:"confirmed_at"`
	ExpiresAt         *time.Time    `gorm:"column:expires_at;index" json:"expires_at"`
	ReminderSentAt    *time.Time    `gorm:"column:reminder_sent_at" json:"reminder_sent_at"`
	LastSeenAt        *time.Time    `gorm:"column:last_seen_at" json:"last_seen_at"`
	FirewallRuleID    string        `gorm:"column:firewall_rule_id;size:100" json:"firewall_rule_id"`
	CreatedAt         time.Time     `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (s *VPNSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (VPNSession) TableName() string {
	return "vpn_sessions"
}
