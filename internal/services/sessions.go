package services

import (
	"fmt"
	"log"
	"time"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
)

// ErrSessionGone is returned when an operation targets a session that
// already reached a terminal state
var ErrSessionGone = fmt.Errorf("session is not active")

// MaxAccountsPerUser limits router credentials bound to one user
const MaxAccountsPerUser = 2

// SessionService owns VPN session lifecycle operations
type SessionService struct {
	router *mikrotik.Manager
}

// NewSessionService creates a session service
func NewSessionService() *SessionService {
	return &SessionService{router: mikrotik.NewManager()}
}

// Create opens a new session request for one of the user's router
// accounts and enables the credential on the router
func (s *SessionService) Create(userID, mikrotikUsername string) (*models.VPNSession, error) {
	var user models.User
	if err := database.DB.Preload("Settings").Preload("Accounts").First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if !user.Status.CanUseVPN() {
		return nil, fmt.Errorf("user %s is not approved for VPN access", user.FullName)
	}

	var account *models.UserMikrotikAccount
	for i := range user.Accounts {
		if user.Accounts[i].MikrotikUsername == mikrotikUsername {
			account = &user.Accounts[i]
			break
		}
	}
	if account == nil {
		return nil, fmt.Errorf("account %s does not belong to user", mikrotikUsername)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("account %s is deactivated", mikrotikUsername)
	}

	var open int64
	database.DB.Model(&models.VPNSession{}).
		Where("mikrotik_username = ? AND status NOT IN ?", mikrotikUsername,
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}).
		Count(&open)
	if open > 0 {
		return nil, fmt.Errorf("account %s already has an open session", mikrotikUsername)
	}

	if err := s.router.EnableUser(mikrotikUsername); err != nil {
		return nil, fmt.Errorf("failed to enable router account: %w", err)
	}

	session := models.VPNSession{
		UserID:           userID,
		MikrotikUsername: mikrotikUsername,
		Status:           models.SessionRequested,
	}
	if err := database.DB.Create(&session).Error; err != nil {
		return nil, err
	}

	log.Printf("Session %s requested for %s", session.ID, mikrotikUsername)
	return &session, nil
}

// sessionTTL resolves the session lifetime from the user's reminder
// interval setting
func sessionTTL(user *models.User) time.Duration {
	hours := 6
	if user != nil && user.Settings != nil && user.Settings.ReminderIntervalHours > 0 {
		hours = user.Settings.ReminderIntervalHours
	}
	return time.Duration(hours) * time.Hour
}

// Confirm moves a connected session to active, arming its expiry and
// enabling the user's firewall rule
func (s *SessionService) Confirm(sessionID string) (*models.VPNSession, error) {
	var session models.VPNSession
	if err := database.DB.Preload("User").Preload("User.Settings").First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}

	if session.Status != models.SessionConnected && session.Status != models.SessionRequested {
		return nil, ErrSessionGone
	}

	now := time.Now()
	expires := now.Add(sessionTTL(session.User))

	updates := map[string]interface{}{
		"status":       models.SessionActive,
		"confirmed_at": now,
		"expires_at":   expires,
	}

	if session.User != nil && session.User.Settings != nil {
		if ruleID := s.router.EnableUserFirewall(session.User.Settings.FirewallRuleComment); ruleID != "" {
			updates["firewall_rule_id"] = ruleID
		}
	}

	if err := database.DB.Model(&session).Updates(updates).Error; err != nil {
		return nil, err
	}

	session.Status = models.SessionActive
	session.ConfirmedAt = &now
	session.ExpiresAt = &expires

	log.Printf("Session %s confirmed, expires %s", session.ID, expires.Format(time.RFC3339))
	return &session, nil
}

// Deny terminates a session the user did not recognize
func (s *SessionService) Deny(sessionID string) error {
	return s.terminate(sessionID, models.SessionDisconnected, true)
}

// Disconnect terminates a session on user or admin request
func (s *SessionService) Disconnect(sessionID string) error {
	return s.terminate(sessionID, models.SessionDisconnected, false)
}

// terminate drops the router connection, disables the firewall rule
// and moves the session to a terminal state
func (s *SessionService) terminate(sessionID string, status models.SessionStatus, disableAccount bool) error {
	var session models.VPNSession
	if err := database.DB.Preload("User").Preload("User.Settings").First(&session, "id = ?", sessionID).Error; err != nil {
		return err
	}

	if session.Status.IsTerminal() {
		return ErrSessionGone
	}

	if err := s.router.DisconnectUser(session.MikrotikUsername); err != nil {
		log.Printf("Session %s: router disconnect: %v", session.ID, err)
	}
	if disableAccount {
		if err := s.router.DisableUser(session.MikrotikUsername); err != nil {
			log.Printf("Session %s: router disable: %v", session.ID, err)
		}
	}
	if session.User != nil && session.User.Settings != nil {
		s.router.DisableUserFirewall(session.User.Settings.FirewallRuleComment)
	}

	if err := database.DB.Model(&session).Update("status", status).Error; err != nil {
		return err
	}

	session.Status = status
	switch status {
	case models.SessionExpired:
		notify.SessionExpired(&session, session.User)
	default:
		notify.SessionDisconnected(&session, session.User)
	}

	log.Printf("Session %s terminated (%s)", session.ID, status)
	return nil
}

// Extend pushes the expiry of a live session forward and resets any
// reminder state
func (s *SessionService) Extend(sessionID string) (*models.VPNSession, error) {
	var session models.VPNSession
	if err := database.DB.Preload("User").Preload("User.Settings").First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}

	if !session.Status.IsLive() {
		return nil, ErrSessionGone
	}

	expires := time.Now().Add(sessionTTL(session.User))
	updates := map[string]interface{}{
		"status":           models.SessionActive,
		"expires_at":       expires,
		"reminder_sent_at": nil,
	}
	if err := database.DB.Model(&session).Updates(updates).Error; err != nil {
		return nil, err
	}

	session.Status = models.SessionActive
	session.ExpiresAt = &expires
	session.ReminderSentAt = nil

	log.Printf("Session %s extended until %s", session.ID, expires.Format(time.RFC3339))
	return &session, nil
}

// DisableAccess disables all of a user's router accounts. With
// disconnectAll, live connections are dropped as well.
func (s *SessionService) DisableAccess(userID string, disconnectAll bool) error {
	var accounts []models.UserMikrotikAccount
	if err := database.DB.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("user has no router accounts")
	}

	for _, account := range accounts {
		if err := s.router.DisableUser(account.MikrotikUsername); err != nil {
			log.Printf("DisableAccess: router disable %s: %v", account.MikrotikUsername, err)
		}
		database.DB.Model(&models.UserMikrotikAccount{}).
			Where("id = ?", account.ID).Update("is_active", false)
	}

	if disconnectAll {
		var sessions []models.VPNSession
		database.DB.Where("user_id = ? AND status NOT IN ?", userID,
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}).Find(&sessions)
		for _, session := range sessions {
			if err := s.Disconnect(session.ID); err != nil && err != ErrSessionGone {
				log.Printf("DisableAccess: disconnect %s: %v", session.ID, err)
			}
		}
	}

	return nil
}

// OpenForUser lists a user's non-terminal sessions, newest first
func (s *SessionService) OpenForUser(userID string) ([]models.VPNSession, error) {
	var sessions []models.VPNSession
	err := database.DB.
		Where("user_id = ? AND status NOT IN ?", userID,
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// BindAccount attaches a router credential to a user, enforcing the
// per-user account limit
func (s *SessionService) BindAccount(userID, mikrotikUsername string) (*models.UserMikrotikAccount, error) {
	var count int64
	database.DB.Model(&models.UserMikrotikAccount{}).Where("user_id = ?", userID).Count(&count)
	if count >= MaxAccountsPerUser {
		return nil, fmt.Errorf("user already has %d router accounts", MaxAccountsPerUser)
	}

	account := models.UserMikrotikAccount{
		UserID:           userID,
		MikrotikUsername: mikrotikUsername,
		IsActive:         true,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
