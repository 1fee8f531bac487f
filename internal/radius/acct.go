package radius

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/mikrotik"
	"github.com/tikguard/backend/internal/models"
)

// AcctServer listens for RADIUS accounting packets from the router and
// feeds session liveness into the session table. The poller stays the
// source of truth; accounting only sharpens last-seen timestamps
// between polls.
type AcctServer struct {
	addr   string
	server *radius.PacketServer
}

// NewAcctServer creates an accounting listener on the given UDP port
func NewAcctServer(port int) *AcctServer {
	return &AcctServer{addr: fmt.Sprintf(":%d", port)}
}

// secretSource resolves the shared secret from the active router config
// per request, so secret rotation needs no restart
type secretSource struct{}

func (secretSource) RADIUSSecret(ctx context.Context, remoteAddr net.Addr) ([]byte, error) {
	cfg, err := mikrotik.ActiveConfig()
	if err != nil {
		return nil, err
	}
	if cfg.RadiusSecret == "" {
		return nil, fmt.Errorf("active router config has no RADIUS secret")
	}
	return []byte(cfg.RadiusSecret), nil
}

// Start runs the accounting server until Stop is called
func (s *AcctServer) Start() {
	s.server = &radius.PacketServer{
		Addr:         s.addr,
		Network:      "udp",
		SecretSource: secretSource{},
		Handler:      radius.HandlerFunc(s.handleAcct),
	}

	go func() {
		log.Printf("Starting RADIUS accounting listener on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != radius.ErrServerShutdown {
			log.Printf("RADIUS accounting server error: %v", err)
		}
	}()
}

// Stop shuts the accounting server down
func (s *AcctServer) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Printf("RADIUS accounting shutdown: %v", err)
	}
}

// handleAcct updates session liveness from accounting packets. Every
// request is ACKed; the router retries forever otherwise.
func (s *AcctServer) handleAcct(w radius.ResponseWriter, r *radius.Request) {
	username := rfc2865.UserName_GetString(r.Packet)
	statusType := rfc2866.AcctStatusType_Get(r.Packet)
	sessionID := rfc2866.AcctSessionID_GetString(r.Packet)

	defer w.Write(r.Response(radius.CodeAccountingResponse))

	if username == "" {
		return
	}

	var session models.VPNSession
	err := database.DB.
		Where("mikrotik_username = ? AND status NOT IN ?", username,
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return
	}

	now := time.Now()

	switch statusType {
	case rfc2866.AcctStatusType_Value_Start, rfc2866.AcctStatusType_Value_InterimUpdate:
		updates := map[string]interface{}{"last_seen_at": now}
		if sessionID != "" && session.MikrotikSessionID == "" {
			updates["mikrotik_session_id"] = sessionID
		}
		database.DB.Model(&session).Updates(updates)

	case rfc2866.AcctStatusType_Value_Stop:
		// Clear liveness so the next poll applies the grace period
		// instead of trusting a stale timestamp
		database.DB.Model(&session).Update("last_seen_at", nil)
		log.Printf("RADIUS: stop for %s (session %s)", username, session.ID)
	}
}
