// Package credential resolves entity passwords and keeps secrets out of logs.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "mongoplug"

// KeyringPrefix marks a password that lives in the OS keyring: "keyring:<account>".
const KeyringPrefix = "keyring:"

// Service handles password storage in the OS keyring.
type Service struct {
	service string
}

// NewService creates a credential service bound to the module's keyring service name.
func NewService() *Service {
	return &Service{service: keyringService}
}

// Resolve returns the cleartext password for a configured value.
// Plain values are returned untouched; "keyring:<account>" is looked up in the keyring.
func (s *Service) Resolve(value string) (string, error) {
	account, ok := strings.CutPrefix(value, KeyringPrefix)
	if !ok {
		return value, nil
	}
	if account == "" {
		return "", fmt.Errorf("keyring reference without account")
	}
	password, err := keyring.Get(s.service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no keyring password for account %q", account)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return password, nil
}

// SetPassword stores a password in the OS keyring.
func (s *Service) SetPassword(account, password string) error {
	if password == "" {
		// Delete any existing password
		_ = keyring.Delete(s.service, account)
		return nil
	}
	return keyring.Set(s.service, account, password)
}

// DeletePassword removes a password from the OS keyring.
func (s *Service) DeletePassword(account string) error {
	err := keyring.Delete(s.service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
