package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tikguard/backend/internal/models"
)

func TestActionFor(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   models.AuditAction
	}{
		{"POST", "/api/users", models.AuditActionCreate},
		{"PUT", "/api/users/123", models.AuditActionUpdate},
		{"PATCH", "/api/users/123", models.AuditActionUpdate},
		{"DELETE", "/api/users/123", models.AuditActionDelete},
		{"POST", "/api/registration-requests/123/approve", models.AuditActionApprove},
		{"POST", "/api/registration-requests/123/reject", models.AuditActionReject},
		{"POST", "/api/sessions/123/disconnect", models.AuditActionDisconnect},
		{"POST", "/api/sessions/123/extend", models.AuditActionExtend},
		{"POST", "/api/backup/db.sql.gz/restore", models.AuditActionRestore},
		{"GET", "/api/users", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, actionFor(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestExtractIDFromPath(t *testing.T) {
	id := "0b6e7a2c-9f31-4a6a-8c3e-33d1a8b2f9aa"

	assert.Equal(t, id, extractIDFromPath("/api/users/"+id))
	assert.Equal(t, id, extractIDFromPath("/api/users/"+id+"/settings"))
	assert.Empty(t, extractIDFromPath("/api/users"))
	assert.Empty(t, extractIDFromPath("/api/backup/backup-20240101.sql.gz"))
}

func TestEntityTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/users/123", "user"},
		{"/api/sessions/abc/disconnect", "session"},
		{"/api/registration-requests/abc/approve", "registration"},
		{"/api/mikrotik/configs", "router"},
		{"/api/settings/telegram_bot_token", "settings"},
		{"/api/backup", "backup"},
		{"/api/auth/logout", "admin"},
		{"/api/unknown-thing", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, getEntityTypeFromPath(tt.path), tt.path)
	}
}
