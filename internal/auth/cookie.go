package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCookie is returned when the requested cookie is absent.
var ErrNoCookie = errors.New("cookie not found")

// sealer encrypts JSON values into cookie-safe strings with AES-256-GCM.
type sealer struct {
	aead   cipher.AEAD
	secure bool // Use Secure flag on cookies (for HTTPS)
}

func newSealer(key []byte, secure bool) (*sealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cookie key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &sealer{aead: aead, secure: secure}, nil
}

// write encrypts v and sets it as cookie name.
func (s *sealer) write(w http.ResponseWriter, name string, maxAge int, v any) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nonce, nonce, plaintext, []byte(name))
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.RawURLEncoding.EncodeToString(ciphertext),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
	return nil
}

// read decrypts cookie name into v. The cookie name is bound as associated
// data so a value cannot be replayed under another name.
func (s *sealer) read(r *http.Request, name string, v any) error {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ErrNoCookie
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if len(ciphertext) < s.aead.NonceSize() {
		return fmt.Errorf("invalid %s data", name)
	}

	nonce, ciphertext := ciphertext[:s.aead.NonceSize()], ciphertext[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", name, err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

func (s *sealer) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	})
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
