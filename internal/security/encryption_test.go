package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	InitializeKey("test-secret")

	ciphertext, err := Encrypt("router-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, "router-password-123", ciphertext)

	plaintext, err := Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "router-password-123", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	InitializeKey("test-secret")

	ciphertext, err := Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	InitializeKey("test-secret")

	// Rows written before encryption was enabled come back unchanged
	out, err := Decrypt("not base64!!")
	require.NoError(t, err)
	assert.Equal(t, "not base64!!", out)
}

func TestDecryptWithWrongKey(t *testing.T) {
	InitializeKey("key-one")
	ciphertext, err := Encrypt("secret-value")
	require.NoError(t, err)

	InitializeKey("key-two")
	out, err := Decrypt(ciphertext)
	require.NoError(t, err)
	// GCM authentication fails, the raw value is returned untouched
	assert.Equal(t, ciphertext, out)
}

func TestEncryptNonDeterministic(t *testing.T) {
	InitializeKey("test-secret")

	a, err := Encrypt("same input")
	require.NoError(t, err)
	b, err := Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
