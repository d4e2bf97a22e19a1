package secrets

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrNoCredential   = errors.New("secrets: no credential stored")
	ErrInvalidKey     = errors.New("secrets: key must be 32 bytes of hex")
	ErrSealedTooShort = errors.New("secrets: sealed credential shorter than nonce")
)

// CredentialStore persists the sealed bytes; the repository layer implements
// it without knowing what the bytes contain.
type CredentialStore interface {
	GetCredential(ctx context.Context, accountID int64) ([]byte, error)
	PutCredential(ctx context.Context, accountID int64, sealed []byte) error
}

// Store seals platform access tokens with XChaCha20-Poly1305 before they
// reach the database. Plaintext tokens exist only in memory, inside the
// request that uses them; they are never logged and never returned by the
// REST surface.
type Store struct {
	aead  cipher.AEAD
	creds CredentialStore
}

// New builds a store from a hex-encoded 32-byte key, typically loaded from
// SECRETS_KEY.
func New(hexKey string, creds CredentialStore) (*Store, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "secrets: init aead")
	}
	return &Store{aead: aead, creds: creds}, nil
}

// Seal stores the token for the account. The random nonce is prepended to
// the ciphertext, so each write produces a distinct sealed blob even for an
// unchanged token.
func (s *Store) Seal(ctx context.Context, accountID int64, token string) error {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "secrets: nonce")
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(token), nil)
	return s.creds.PutCredential(ctx, accountID, sealed)
}

// Open returns the plaintext token for the account.
func (s *Store) Open(ctx context.Context, accountID int64) (string, error) {
	sealed, err := s.creds.GetCredential(ctx, accountID)
	if err != nil {
		return "", err
	}
	if len(sealed) == 0 {
		return "", ErrNoCredential
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return "", ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "secrets: open credential")
	}
	return string(plaintext), nil
}
