package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tikguard/backend/internal/models"
)

func testOpts(now time.Time) reconcileOptions {
	return reconcileOptions{
		requireConfirmation: true,
		confirmationTimeout: 5 * time.Minute,
		checkInterval:       time.Minute,
		now:                 now,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDecideRequestedSession(t *testing.T) {
	now := time.Now()
	session := &models.VPNSession{Status: models.SessionRequested, CreatedAt: now.Add(-time.Minute)}

	// Not on the router yet: nothing happens
	assert.Equal(t, actionNone, decideSession(session, false, testOpts(now)))

	// Shows up and confirmation is required
	assert.Equal(t, actionMarkConnected, decideSession(session, true, testOpts(now)))

	// Shows up and confirmation is off
	opts := testOpts(now)
	opts.requireConfirmation = false
	assert.Equal(t, actionAutoActivate, decideSession(session, true, opts))
}

func TestDecideConnectedSession(t *testing.T) {
	now := time.Now()

	session := &models.VPNSession{
		Status:      models.SessionConnected,
		CreatedAt:   now.Add(-10 * time.Minute),
		ConnectedAt: timePtr(now.Add(-time.Minute)),
	}

	// Still inside the confirmation window
	assert.Equal(t, actionRefreshLastSeen, decideSession(session, true, testOpts(now)))
	assert.Equal(t, actionNone, decideSession(session, false, testOpts(now)))

	// Past the window: forced out
	session.ConnectedAt = timePtr(now.Add(-6 * time.Minute))
	assert.Equal(t, actionConfirmTimeout, decideSession(session, true, testOpts(now)))
	assert.Equal(t, actionConfirmTimeout, decideSession(session, false, testOpts(now)))

	// Confirmation toggled off mid-flight: activate instead of waiting
	opts := testOpts(now)
	opts.requireConfirmation = false
	session.ConnectedAt = timePtr(now.Add(-time.Minute))
	assert.Equal(t, actionAutoActivate, decideSession(session, true, opts))
}

func TestDecideConnectedFallsBackToCreatedAt(t *testing.T) {
	now := time.Now()
	session := &models.VPNSession{
		Status:    models.SessionConnected,
		CreatedAt: now.Add(-10 * time.Minute),
	}

	assert.Equal(t, actionConfirmTimeout, decideSession(session, true, testOpts(now)))
}

func TestDecideLiveSession(t *testing.T) {
	now := time.Now()

	for _, status := range []models.SessionStatus{
		models.SessionConfirmed, models.SessionReminderSent, models.SessionActive,
	} {
		session := &models.VPNSession{
			Status:     status,
			CreatedAt:  now.Add(-time.Hour),
			LastSeenAt: timePtr(now.Add(-30 * time.Second)),
		}

		assert.Equal(t, actionRefreshLastSeen, decideSession(session, true, testOpts(now)), status.String())

		// Absent but within grace
		assert.Equal(t, actionNone, decideSession(session, false, testOpts(now)), status.String())

		// Absent past grace (grace = 2m for a 1m interval)
		session.LastSeenAt = timePtr(now.Add(-3 * time.Minute))
		assert.Equal(t, actionMarkDisconnected, decideSession(session, false, testOpts(now)), status.String())
	}
}

func TestDecideDisconnectedResurrection(t *testing.T) {
	now := time.Now()

	session := &models.VPNSession{
		Status:      models.SessionDisconnected,
		CreatedAt:   now.Add(-2 * time.Hour),
		ConfirmedAt: timePtr(now.Add(-90 * time.Minute)),
	}

	// A session the user actually confirmed may return to active
	assert.Equal(t, actionResurrect, decideSession(session, true, testOpts(now)))
	assert.Equal(t, actionNone, decideSession(session, false, testOpts(now)))

	// Too old to come back
	session.CreatedAt = now.Add(-25 * time.Hour)
	assert.Equal(t, actionNone, decideSession(session, true, testOpts(now)))
}

func TestDecideResurrectionRequiresConfirmation(t *testing.T) {
	now := time.Now()

	// Never confirmed: reconnecting must not shortcut into the active
	// family, the session goes back through the connected flow
	session := &models.VPNSession{
		Status:    models.SessionDisconnected,
		CreatedAt: now.Add(-10 * time.Minute),
	}

	assert.Equal(t, actionMarkConnected, decideSession(session, true, testOpts(now)))

	opts := testOpts(now)
	opts.requireConfirmation = false
	assert.Equal(t, actionAutoActivate, decideSession(session, true, opts))

	// Confirmed sessions are exempt from re-confirmation
	session.ConfirmedAt = timePtr(now.Add(-5 * time.Minute))
	assert.Equal(t, actionResurrect, decideSession(session, true, testOpts(now)))
}

func TestDecideExpiredIsFinal(t *testing.T) {
	now := time.Now()
	session := &models.VPNSession{Status: models.SessionExpired, CreatedAt: now.Add(-time.Minute)}

	assert.Equal(t, actionNone, decideSession(session, true, testOpts(now)))
	assert.Equal(t, actionNone, decideSession(session, false, testOpts(now)))
}

func TestDisconnectGrace(t *testing.T) {
	// Floor of 30 seconds for fast pollers
	assert.Equal(t, 30*time.Second, disconnectGrace(5*time.Second))
	// Twice the interval for slow pollers
	assert.Equal(t, 4*time.Minute, disconnectGrace(2*time.Minute))
}

func TestRequireConfirmationOverride(t *testing.T) {
	noConfirm := false
	yesConfirm := true

	assert.True(t, requireConfirmationFor(nil, true))
	assert.False(t, requireConfirmationFor(nil, false))

	user := &models.User{Settings: &models.UserSetting{RequireConfirmation: &noConfirm}}
	assert.False(t, requireConfirmationFor(user, true))

	user.Settings.RequireConfirmation = &yesConfirm
	assert.True(t, requireConfirmationFor(user, false))
}
