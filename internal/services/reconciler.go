package services

import (
	"log"
	"sync"
	"time"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/notify"
	"github.com/tikguard/backend/internal/settings"
)

// resurrectionWindow bounds how old a disconnected session may be and
// still be revived when the router reports it active again
const resurrectionWindow = 24 * time.Hour

// sessionAction is the reconciler's verdict for one session in one cycle
type sessionAction int

const (
	actionNone             sessionAction = iota
	actionMarkConnected                  // requested session showed up on the router
	actionAutoActivate                   // connected and no confirmation required
	actionConfirmTimeout                 // waited too long for confirmation
	actionRefreshLastSeen                // live session still on the router
	actionMarkDisconnected               // live session gone past the grace period
	actionResurrect                      // recently disconnected session reappeared
)

// reconcileOptions carries the per-cycle knobs for decideSession
type reconcileOptions struct {
	requireConfirmation bool
	confirmationTimeout time.Duration
	checkInterval       time.Duration
	now                 time.Time
}

// disconnectGrace is how long an absent session keeps its state before
// being marked disconnected. Slow pollers get a proportionally longer
// grace so one missed cycle never kills a session.
func disconnectGrace(checkInterval time.Duration) time.Duration {
	grace := 2 * checkInterval
	if grace < 30*time.Second {
		grace = 30 * time.Second
	}
	return grace
}

// decideSession advances the session state machine for one session
// given the router's view. It only decides; the reconciler applies.
func decideSession(session *models.VPNSession, routerActive bool, opts reconcileOptions) sessionAction {
	switch session.Status {
	case models.SessionRequested:
		if !routerActive {
			return actionNone
		}
		if opts.requireConfirmation {
			return actionMarkConnected
		}
		return actionAutoActivate

	case models.SessionConnected:
		if routerActive && !opts.requireConfirmation {
			return actionAutoActivate
		}
		reference := session.CreatedAt
		if session.ConnectedAt != nil {
			reference = *session.ConnectedAt
		}
		if opts.now.Sub(reference) > opts.confirmationTimeout {
			return actionConfirmTimeout
		}
		if routerActive {
			return actionRefreshLastSeen
		}
		return actionNone

	case models.SessionConfirmed, models.SessionReminderSent, models.SessionActive:
		if routerActive {
			return actionRefreshLastSeen
		}
		lastSeen := session.CreatedAt
		if session.LastSeenAt != nil {
			lastSeen = *session.LastSeenAt
		}
		if opts.now.Sub(lastSeen) > disconnectGrace(opts.checkInterval) {
			return actionMarkDisconnected
		}
		return actionNone

	case models.SessionDisconnected:
		if !routerActive || opts.now.Sub(session.CreatedAt) >= resurrectionWindow {
			return actionNone
		}
		// Only a previously confirmed session may return to the active
		// family. One that never passed confirmation re-enters the
		// connected flow and must confirm again.
		if session.ConfirmedAt != nil {
			return actionResurrect
		}
		if opts.requireConfirmation {
			return actionMarkConnected
		}
		return actionAutoActivate
	}

	return actionNone
}

// Reconciler polls the router and drives DB session state toward what
// the router reports. A single goroutine applies all transitions.
type Reconciler struct {
	sessions  *SessionService
	router    *mikrotik.Manager
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconciler creates the reconciliation service
func NewReconciler(sessions *SessionService) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		router:   mikrotik.NewManager(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run()

	log.Println("Reconciler started")
}

// Stop stops the reconciliation loop
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()
	log.Println("Reconciler stopped")
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	// First cycle after a short delay (let system stabilize)
	select {
	case <-time.After(10 * time.Second):
		r.reconcile()
	case <-r.stopChan:
		return
	}

	for {
		// Interval is a setting, re-read every cycle so admins can
		// tune it without a restart
		interval := time.Duration(settings.GetInt(settings.KeyCheckInterval, 60)) * time.Second
		if interval < 10*time.Second {
			interval = 10 * time.Second
		}

		select {
		case <-r.stopChan:
			return
		case <-time.After(interval):
			r.reconcile()
		}
	}
}

// reconcile runs one poll-and-diff cycle
func (r *Reconciler) reconcile() {
	if database.DB == nil {
		return
	}

	routerSessions, err := r.router.ActiveSessions()
	if err != nil {
		// Without the router's view nothing can be decided safely,
		// skip the whole cycle
		log.Printf("Reconciler: router poll failed, skipping cycle: %v", err)
		return
	}

	activeByUser := make(map[string]mikrotik.ActiveSession, len(routerSessions))
	for _, rs := range routerSessions {
		activeByUser[rs.Username] = rs
	}

	var sessions []models.VPNSession
	if err := database.DB.
		Preload("User").Preload("User.Settings").
		Where("status <> ? OR created_at > ?", models.SessionExpired, time.Now().Add(-resurrectionWindow)).
		Find(&sessions).Error; err != nil {
		log.Printf("Reconciler: session query failed: %v", err)
		return
	}

	now := time.Now()
	interval := time.Duration(settings.GetInt(settings.KeyCheckInterval, 60)) * time.Second
	globalRequire := settings.GetBool(settings.KeyRequireConfirmation)
	timeout := time.Duration(settings.GetInt(settings.KeyConfirmationTimeout, 300)) * time.Second

	for i := range sessions {
		session := &sessions[i]
		routerSession, routerActive := activeByUser[session.MikrotikUsername]

		opts := reconcileOptions{
			requireConfirmation: requireConfirmationFor(session.User, globalRequire),
			confirmationTimeout: timeout,
			checkInterval:       interval,
			now:                 now,
		}

		switch decideSession(session, routerActive, opts) {
		case actionMarkConnected:
			if err := r.markConnected(session, routerSession, now); err != nil {
				log.Printf("Reconciler: mark connected %s: %v", session.ID, err)
				break
			}
			notify.SessionConfirmationPrompt(session, session.User)

		case actionAutoActivate:
			if err := r.markConnected(session, routerSession, now); err != nil {
				log.Printf("Reconciler: mark connected %s: %v", session.ID, err)
				break
			}
			if confirmed, err := r.sessions.Confirm(session.ID); err != nil {
				log.Printf("Reconciler: auto-activate %s: %v", session.ID, err)
			} else {
				notify.SessionConfirmed(confirmed, session.User)
			}

		case actionConfirmTimeout:
			log.Printf("Reconciler: session %s not confirmed in time", session.ID)
			if err := r.sessions.Deny(session.ID); err != nil {
				log.Printf("Reconciler: deny %s: %v", session.ID, err)
			}

		case actionRefreshLastSeen:
			updates := map[string]interface{}{"last_seen_at": now}
			if session.MikrotikSessionID == "" && routerSession.SessionID != "" {
				updates["mikrotik_session_id"] = routerSession.SessionID
			}
			database.DB.Model(session).Updates(updates)

		case actionMarkDisconnected:
			log.Printf("Reconciler: session %s lost (last seen %v)", session.ID, session.LastSeenAt)
			if err := r.sessions.Disconnect(session.ID); err != nil && err != ErrSessionGone {
				log.Printf("Reconciler: disconnect %s: %v", session.ID, err)
			}

		case actionResurrect:
			log.Printf("Reconciler: session %s reappeared on router", session.ID)
			updates := map[string]interface{}{
				"status":       models.SessionActive,
				"last_seen_at": now,
			}
			if session.MikrotikSessionID == "" && routerSession.SessionID != "" {
				updates["mikrotik_session_id"] = routerSession.SessionID
			}
			// The disconnect that preceded us switched the firewall rule off
			if session.User != nil && session.User.Settings != nil {
				if ruleID := r.router.EnableUserFirewall(session.User.Settings.FirewallRuleComment); ruleID != "" {
					updates["firewall_rule_id"] = ruleID
				}
			}
			if err := database.DB.Model(session).Updates(updates).Error; err != nil {
				log.Printf("Reconciler: resurrect %s: %v", session.ID, err)
				break
			}
			session.Status = models.SessionActive
			notify.SessionReconnected(session, session.User)
		}
	}
}

// markConnected records first contact for a requested session. Nothing
// is announced to the user unless the write went through.
func (r *Reconciler) markConnected(session *models.VPNSession, routerSession mikrotik.ActiveSession, now time.Time) error {
	updates := map[string]interface{}{
		"status":       models.SessionConnected,
		"connected_at": now,
		"last_seen_at": now,
	}
	if routerSession.SessionID != "" {
		updates["mikrotik_session_id"] = routerSession.SessionID
	}
	if err := database.DB.Model(session).Updates(updates).Error; err != nil {
		return err
	}
	session.Status = models.SessionConnected
	session.ConnectedAt = &now
	session.LastSeenAt = &now
	return nil
}

// requireConfirmationFor resolves the per-user confirmation override
// against the global setting
func requireConfirmationFor(user *models.User, globalRequire bool) bool {
	if user != nil && user.Settings != nil && user.Settings.RequireConfirmation != nil {
		return *user.Settings.RequireConfirmation
	}
	return globalRequire
}
