// Package secrets implements symmetric-encrypted credential storage: a
// master password is stretched via PBKDF2 into an AES-GCM key, so
// credentials can be committed to .env in encrypted form and only ever
// exist in plaintext in process memory.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 480000
	keyLenBytes      = 32
)

// fixedSalt pins the KDF to a single deployment-wide salt, matching how the
// master password is rotated (out of band, not per secret).
var fixedSalt = []byte("orion_arbitrage_salt_v1")

// Store implements ports.SecretsStore via AES-256-GCM keyed by a
// PBKDF2-SHA256-stretched master password, with env-var credential lookup
// that prefers a plaintext var and falls back to decrypting its
// "_ENCRYPTED" counterpart.
type Store struct {
	gcm cipher.AEAD
}

// NewStore derives the AEAD key from masterPassword. An empty password is
// rejected — callers must source it from MASTER_PASSWORD or a secret
// manager, never a hardcoded default.
func NewStore(masterPassword string) (*Store, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("secrets: master password is required")
	}

	key := pbkdf2.Key([]byte(masterPassword), fixedSalt, pbkdf2Iterations, keyLenBytes, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: init gcm: %w", err)
	}
	return &Store{gcm: gcm}, nil
}

// Encrypt seals plaintext and returns a base64 blob of nonce||ciphertext.
func (s *Store) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (s *Store) Decrypt(ciphertextB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("secrets: decode base64: %w", err)
	}
	nonceSize := s.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("secrets: ciphertext too short")
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt failed, check master password: %w", err)
	}
	return string(plaintext), nil
}

// envOrDecrypted prefers the plaintext env var and falls back to decrypting
// its "_ENCRYPTED" counterpart, logging nothing on failure (callers decide
// how to react to a missing credential).
func (s *Store) envOrDecrypted(plainVar, encryptedVar string) string {
	if v := os.Getenv(plainVar); v != "" {
		return v
	}
	enc := os.Getenv(encryptedVar)
	if enc == "" {
		return ""
	}
	plain, err := s.Decrypt(enc)
	if err != nil {
		return ""
	}
	return plain
}

// VenueACredentials reads the regulated exchange's API key and RSA private
// key PEM from env, decrypting the encrypted variants if present.
func (s *Store) VenueACredentials() (apiKey, apiSecret string, err error) {
	apiKey = s.envOrDecrypted("VENUE_A_API_KEY", "VENUE_A_API_KEY_ENCRYPTED")
	apiSecret = s.envOrDecrypted("VENUE_A_PRIVATE_KEY", "VENUE_A_PRIVATE_KEY_ENCRYPTED")
	if apiKey == "" || apiSecret == "" {
		return "", "", fmt.Errorf("secrets: venue A credentials missing")
	}
	return apiKey, apiSecret, nil
}

// VenueBCredentials reads the on-chain venue's wallet private key.
func (s *Store) VenueBCredentials() (privateKeyHex string, err error) {
	privateKeyHex = s.envOrDecrypted("VENUE_B_PRIVATE_KEY", "VENUE_B_PRIVATE_KEY_ENCRYPTED")
	if privateKeyHex == "" {
		return "", fmt.Errorf("secrets: venue B credentials missing")
	}
	return privateKeyHex, nil
}

// TelegramCredentials reads the bot token and chat ID; ok is false when
// either is absent, so callers can silently skip the channel.
func (s *Store) TelegramCredentials() (token, chatID string, ok bool) {
	token = s.envOrDecrypted("TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN_ENCRYPTED")
	chatID = s.envOrDecrypted("TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID_ENCRYPTED")
	return token, chatID, token != "" && chatID != ""
}
