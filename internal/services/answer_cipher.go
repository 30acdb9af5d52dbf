package services

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// AnswerCipher encrypts stored security answers with XChaCha20-Poly1305.
// A fresh random nonce is generated per encryption and prepended to the
// ciphertext.
type AnswerCipher struct {
	aead   cipher.AEAD
	logger *slog.Logger
}

// NewAnswerCipher creates a cipher keyed by the configured secret. If no
// secret is configured, a random ephemeral key is generated; stored answers
// then become unrecoverable across process restarts, which is logged as an
// operational warning.
func NewAnswerCipher(secret string, logger *slog.Logger) (*AnswerCipher, error) {
	var key []byte
	if secret != "" {
		// Accept any secret length; derive a uniform 256-bit key
		derived := sha256.Sum256([]byte(secret))
		key = derived[:]
	} else {
		key = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral cipher key: %w", err)
		}
		logger.Warn("EMAIL_RECOVERY_ENCRYPTION_KEY not set; using ephemeral key, stored answers will not survive a restart")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize answer cipher: %w", err)
	}

	return &AnswerCipher{aead: aead, logger: logger}, nil
}

// Encrypt serializes and encrypts a questionID -> answer mapping
func (c *AnswerCipher) Encrypt(answers map[int]string) ([]byte, error) {
	plaintext, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize answers: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt recovers the answer mapping. Failures are swallowed and logged:
// a corrupted or unreadable blob degrades to "no stored answers" rather than
// crashing the workflow.
func (c *AnswerCipher) Decrypt(ciphertext []byte) map[int]string {
	if len(ciphertext) <= chacha20poly1305.NonceSizeX {
		c.logger.Warn("stored answer blob too short to decrypt", slog.Int("length", len(ciphertext)))
		return map[int]string{}
	}

	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	sealed := ciphertext[chacha20poly1305.NonceSizeX:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		c.logger.Warn("failed to decrypt stored answers", slog.Any("error", err))
		return map[int]string{}
	}

	var answers map[int]string
	if err := json.Unmarshal(plaintext, &answers); err != nil {
		c.logger.Warn("failed to deserialize stored answers", slog.Any("error", err))
		return map[int]string{}
	}

	return answers
}

// NormalizeAnswer lowercases, trims, and collapses internal whitespace so
// that comparison is case- and whitespace-insensitive. Idempotent.
func NormalizeAnswer(answer string) string {
	return strings.Join(strings.Fields(strings.ToLower(answer)), " ")
}
