package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"sync"
)

var (
	encryptionKey    []byte
	keyMutex         sync.RWMutex
	keyInitialized   bool
	ErrNoKey         = errors.New("encryption key not initialized")
	ErrDecryptFailed = errors.New("decryption failed")
)

// InitializeKey derives the AES-256 key from the configured secret
func InitializeKey(secret string) {
	keyMutex.Lock()
	defer keyMutex.Unlock()

	hash := sha256.Sum256([]byte(secret))
	encryptionKey = hash[:]
	keyInitialized = true
}

// Encrypt encrypts plaintext using AES-256-GCM
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	key, err := currentKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM. Values that do not
// decode or decrypt are returned as-is to tolerate plaintext rows
// written before encryption was enabled.
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	key, err := currentKey()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return ciphertext, nil
	}

	nonce, ciphertextBytes := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return ciphertext, nil
	}

	return string(plaintext), nil
}

func currentKey() ([]byte, error) {
	keyMutex.RLock()
	defer keyMutex.RUnlock()

	if !keyInitialized {
		return nil, ErrNoKey
	}
	key := make([]byte, len(encryptionKey))
	copy(key, encryptionKey)
	return key, nil
}

// HashString creates a one-way hash (for comparison without decryption)
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// GenerateRandomKey generates a random encryption key
func GenerateRandomKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
