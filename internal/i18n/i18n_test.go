package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	out := Render("VPN session for {username} expires at {expires_at}.", map[string]string{
		"username":   "alice",
		"expires_at": "18:00",
	})
	assert.Equal(t, "VPN session for alice expires at 18:00.", out)
}

func TestRenderUnknownPlaceholderKept(t *testing.T) {
	out := Render("Hello {name}, code {code}", map[string]string{"name": "bob"})
	assert.Equal(t, "Hello bob, code {code}", out)
}

func TestRenderNoVars(t *testing.T) {
	assert.Equal(t, "plain text {x}", Render("plain text {x}", nil))
}

func TestRenderUnclosedBrace(t *testing.T) {
	out := Render("broken {name template", map[string]string{"name": "x"})
	assert.Equal(t, "broken {name template", out)
}

func TestTFallbackChain(t *testing.T) {
	// Russian table has the key
	assert.NotEqual(t, "help", T("ru", "help", nil))
	// Unknown language falls back to English
	assert.Equal(t, T("en", "help", nil), T("de", "help", nil))
	// Unknown key falls back to the id
	assert.Equal(t, "no_such_key", T("en", "no_such_key", nil))
}

func TestTablesParity(t *testing.T) {
	en := Table("en")
	ru := Table("ru")
	assert.Equal(t, len(en), len(ru))
	for key := range en {
		_, ok := ru[key]
		assert.True(t, ok, "missing ru key %s", key)
	}
}
