package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMissingSignature = errors.New("webhook: missing signature header")
	ErrBadSignature     = errors.New("webhook: signature mismatch")
	ErrVerifyToken      = errors.New("webhook: verify token mismatch")
)

const signaturePrefix = "sha256="

// Verifier checks webhook authenticity: the HMAC body signature on POST
// deliveries and the subscription handshake on GET.
type Verifier struct {
	appSecret   string
	verifyToken string
}

func NewVerifier(appSecret, verifyToken string) *Verifier {
	return &Verifier{appSecret: appSecret, verifyToken: verifyToken}
}

// ValidateSignature checks the X-Hub-Signature-256 header against the raw
// request body. Constant-time comparison; the body must be the exact bytes
// received, before any decoding.
func (v *Verifier) ValidateSignature(body []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}
	provided := strings.TrimPrefix(header, signaturePrefix)
	if provided == header {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(v.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrBadSignature
	}
	return nil
}

// VerifySubscription answers the platform's GET handshake. Returns the
// challenge to echo back when the mode and token match.
func (v *Verifier) VerifySubscription(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != v.verifyToken {
		return "", ErrVerifyToken
	}
	return challenge, nil
}
