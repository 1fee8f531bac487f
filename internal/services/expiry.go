package services

import (
	"log"
	"sync"
	"time"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
	"github.com/tikguard/backend/internal/settings"
)

// reminderLead is how long before expiry the reminder goes out
const reminderLead = time.Hour

// expiryAction is the sweep's verdict for one session
type expiryAction int

const (
	expiryNone     expiryAction = iota
	expiryBackfill              // missing expires_at, derive from created_at
	expiryExpire                // past expires_at
	expiryRemind                // inside the reminder window, not yet reminded
)

// decideExpiry classifies one non-terminal session for the sweep.
// Extend clears reminder_sent_at, which makes a session eligible for a
// reminder again once it re-enters the window.
func decideExpiry(session *models.VPNSession, now time.Time, remindersEnabled bool) expiryAction {
	if session.Status.IsTerminal() {
		return expiryNone
	}
	if session.ExpiresAt == nil {
		return expiryBackfill
	}
	if !session.ExpiresAt.After(now) {
		return expiryExpire
	}
	if !remindersEnabled || session.ReminderSentAt != nil {
		return expiryNone
	}
	if session.Status != models.SessionConfirmed && session.Status != models.SessionActive {
		return expiryNone
	}
	if session.ExpiresAt.Sub(now) <= reminderLead {
		return expiryRemind
	}
	return expiryNone
}

// backfillExpiry derives the missing expiry stamp from the session age
func backfillExpiry(session *models.VPNSession, durationHours int) time.Time {
	return session.CreatedAt.Add(time.Duration(durationHours) * time.Hour)
}

// ExpiryService sweeps sessions for expiry and sends reminders
type ExpiryService struct {
	sessions      *SessionService
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
}

// NewExpiryService creates the expiry sweeper
func NewExpiryService(sessions *SessionService) *ExpiryService {
	return &ExpiryService{
		sessions:      sessions,
		checkInterval: 15 * time.Minute,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the expiry sweeps
func (s *ExpiryService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	log.Printf("ExpiryService started (interval: %v)", s.checkInterval)
}

// Stop stops the expiry sweeps
func (s *ExpiryService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	log.Println("ExpiryService stopped")
}

func (s *ExpiryService) run() {
	defer s.wg.Done()

	select {
	case <-time.After(time.Minute):
		s.sweep()
	case <-s.stopChan:
		return
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ExpiryService) sweep() {
	if database.DB == nil {
		return
	}

	now := time.Now()
	terminal := []models.SessionStatus{models.SessionDisconnected, models.SessionExpired}
	durationHours := settings.GetInt(settings.KeySessionDurationHours, 24)
	remindersEnabled := settings.GetBool(settings.KeyRemindersEnabled)

	var sessions []models.VPNSession
	if err := database.DB.Preload("User").Preload("User.Settings").
		Where("status NOT IN ?", terminal).
		Find(&sessions).Error; err != nil {
		log.Printf("ExpiryService: session query failed: %v", err)
		return
	}

	for i := range sessions {
		session := &sessions[i]

		switch decideExpiry(session, now, remindersEnabled) {
		case expiryBackfill:
			expires := backfillExpiry(session, durationHours)
			if err := database.DB.Model(session).Update("expires_at", expires).Error; err != nil {
				log.Printf("ExpiryService: backfill %s: %v", session.ID, err)
			}

		case expiryExpire:
			if err := s.sessions.terminate(session.ID, models.SessionExpired, false); err != nil && err != ErrSessionGone {
				log.Printf("ExpiryService: expire %s: %v", session.ID, err)
			}

		case expiryRemind:
			updates := map[string]interface{}{
				"status":           models.SessionReminderSent,
				"reminder_sent_at": now,
			}
			if err := database.DB.Model(session).Updates(updates).Error; err != nil {
				log.Printf("ExpiryService: reminder update %s: %v", session.ID, err)
				continue
			}
			session.Status = models.SessionReminderSent
			notify.SessionReminder(session, session.User)
		}
	}
}
