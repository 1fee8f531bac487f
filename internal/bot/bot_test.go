package bot

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikguard/backend/internal/models"
)

func TestAccountKeyboard(t *testing.T) {
	accounts := []models.UserMikrotikAccount{
		{MikrotikUsername: "vpn-alice"},
		{MikrotikUsername: "vpn-alice-2"},
	}

	kb := accountKeyboard(accounts)
	require.Len(t, kb.InlineKeyboard, 2)

	first := kb.InlineKeyboard[0][0]
	assert.Equal(t, "vpn-alice", first.Text)
	require.NotNil(t, first.CallbackData)
	assert.Equal(t, "request_vpn:idx:0", *first.CallbackData)

	second := kb.InlineKeyboard[1][0]
	require.NotNil(t, second.CallbackData)
	assert.Equal(t, "request_vpn:idx:1", *second.CallbackData)
}

func TestPendingNameTracking(t *testing.T) {
	b := &Bot{
		log:         logrus.New(),
		pendingName: make(map[int64]bool),
	}

	assert.False(t, b.isPendingName(42))

	b.setPendingName(42, true)
	assert.True(t, b.isPendingName(42))
	assert.False(t, b.isPendingName(43))

	b.setPendingName(42, false)
	assert.False(t, b.isPendingName(42))
}
