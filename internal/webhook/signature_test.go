package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifier_ValidateSignature(t *testing.T) {
	v := NewVerifier("app-secret", "verify-token")
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, v.ValidateSignature(body, sign("app-secret", body)))
	})

	t.Run("missing header", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateSignature(body, ""), ErrMissingSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateSignature(body, sign("other-secret", body)), ErrBadSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := sign("app-secret", body)
		tampered := append([]byte(nil), body...)
		tampered[0] = '['
		assert.ErrorIs(t, v.ValidateSignature(tampered, header), ErrBadSignature)
	})

	t.Run("header without prefix", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte("app-secret"))
		mac.Write(body)
		raw := hex.EncodeToString(mac.Sum(nil))
		assert.ErrorIs(t, v.ValidateSignature(body, raw), ErrBadSignature)
	})
}

func TestVerifier_VerifySubscription(t *testing.T) {
	v := NewVerifier("app-secret", "verify-token")

	t.Run("valid handshake echoes the challenge", func(t *testing.T) {
		challenge, err := v.VerifySubscription("subscribe", "verify-token", "12345")
		require.NoError(t, err)
		assert.Equal(t, "12345", challenge)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := v.VerifySubscription("subscribe", "wrong", "12345")
		assert.ErrorIs(t, err, ErrVerifyToken)
	})

	t.Run("wrong mode", func(t *testing.T) {
		_, err := v.VerifySubscription("unsubscribe", "verify-token", "12345")
		assert.ErrorIs(t, err, ErrVerifyToken)
	})
}
