package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tikguard/backend/internal/models"
)

func TestDecideExpiryBackfill(t *testing.T) {
	now := time.Now()
	session := &models.VPNSession{
		Status:    models.SessionActive,
		CreatedAt: now.Add(-time.Hour),
	}

	assert.Equal(t, expiryBackfill, decideExpiry(session, now, true))
	assert.Equal(t, now.Add(23*time.Hour), backfillExpiry(session, 24))
}

func TestDecideExpiryExpire(t *testing.T) {
	now := time.Now()

	session := &models.VPNSession{
		Status:    models.SessionActive,
		CreatedAt: now.Add(-24 * time.Hour),
		ExpiresAt: timePtr(now.Add(-time.Minute)),
	}
	assert.Equal(t, expiryExpire, decideExpiry(session, now, true))

	// Exactly at the boundary counts as expired
	session.ExpiresAt = timePtr(now)
	assert.Equal(t, expiryExpire, decideExpiry(session, now, true))

	// Even a pending confirmation runs out eventually
	session.Status = models.SessionConnected
	assert.Equal(t, expiryExpire, decideExpiry(session, now, true))
}

func TestDecideExpiryReminder(t *testing.T) {
	now := time.Now()

	session := &models.VPNSession{
		Status:    models.SessionActive,
		CreatedAt: now.Add(-5 * time.Hour),
		ExpiresAt: timePtr(now.Add(30 * time.Minute)),
	}

	assert.Equal(t, expiryRemind, decideExpiry(session, now, true))

	// Fires only once per expiry window
	session.ReminderSentAt = timePtr(now.Add(-time.Minute))
	assert.Equal(t, expiryNone, decideExpiry(session, now, true))

	// Extend clears reminder_sent_at and pushes out expires_at; the
	// session becomes eligible again only once it re-enters the window
	session.ReminderSentAt = nil
	session.ExpiresAt = timePtr(now.Add(6 * time.Hour))
	assert.Equal(t, expiryNone, decideExpiry(session, now, true))
	assert.Equal(t, expiryRemind, decideExpiry(session, now.Add(5*time.Hour+30*time.Minute), true))
}

func TestDecideExpiryRemindersDisabled(t *testing.T) {
	now := time.Now()
	session := &models.VPNSession{
		Status:    models.SessionActive,
		CreatedAt: now.Add(-5 * time.Hour),
		ExpiresAt: timePtr(now.Add(30 * time.Minute)),
	}

	assert.Equal(t, expiryNone, decideExpiry(session, now, false))
}

func TestDecideExpiryStatusScope(t *testing.T) {
	now := time.Now()

	// Sessions still waiting on the user get no reminder
	for _, status := range []models.SessionStatus{
		models.SessionRequested, models.SessionConnected, models.SessionReminderSent,
	} {
		session := &models.VPNSession{
			Status:    status,
			CreatedAt: now.Add(-5 * time.Hour),
			ExpiresAt: timePtr(now.Add(30 * time.Minute)),
		}
		assert.Equal(t, expiryNone, decideExpiry(session, now, true), status.String())
	}

	// Terminal sessions are never touched
	session := &models.VPNSession{Status: models.SessionExpired}
	assert.Equal(t, expiryNone, decideExpiry(session, now, true))
	session.Status = models.SessionDisconnected
	assert.Equal(t, expiryNone, decideExpiry(session, now, true))
}
