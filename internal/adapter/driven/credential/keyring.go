package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Keyring identity.
const (
	ServiceName = "gitnotify"
	TokenKey    = "github_token"
)

// Compile-time interface satisfaction check.
var _ driven.TokenSource = (*KeyringSource)(nil)

// OpenKeyring returns the OS keyring, falling back to an encrypted file under
// ~/.config/gitnotify/credentials.
func OpenKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/gitnotify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("gitnotify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyringSource reads and stores the token in a keyring.
type KeyringSource struct {
	ring keyring.Keyring
}

// NewKeyringSource wraps ring.
func NewKeyringSource(ring keyring.Keyring) *KeyringSource {
	return &KeyringSource{ring: ring}
}

// Token returns the stored token, or ErrTokenNotFound when none is stored.
func (k *KeyringSource) Token(context.Context) (string, error) {
	item, err := k.ring.Get(TokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", driven.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", TokenKey, err)
	}

	token := strings.TrimSpace(string(item.Data))
	if token == "" {
		return "", driven.ErrTokenNotFound
	}
	return token, nil
}

// Store saves token, replacing any previous value.
func (k *KeyringSource) Store(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	err := k.ring.Set(keyring.Item{
		Key:         TokenKey,
		Data:        []byte(token),
		Label:       "gitnotify GitHub token",
		Description: "GitHub personal access token used to poll notifications",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", TokenKey, err)
	}
	return nil
}

// Delete removes the stored token. Removing a missing token is not an error.
func (k *KeyringSource) Delete() error {
	err := k.ring.Remove(TokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", TokenKey, err)
	}
	return nil
}
