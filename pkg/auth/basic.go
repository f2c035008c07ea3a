package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// BasicAuthenticator checks HTTP Basic credentials against bcrypt hashes.
type BasicAuthenticator struct {
	mu    sync.RWMutex
	users map[string]string
}

// NewBasicAuthenticator uses a username → bcrypt hash map.
func NewBasicAuthenticator(users map[string]string) *BasicAuthenticator {
	copied := make(map[string]string, len(users))
	for user, hash := range users {
		copied[user] = hash
	}
	return &BasicAuthenticator{users: copied}
}

// LoadUsers reads a YAML `username: bcrypt-hash` file.
func LoadUsers(path string) (*BasicAuthenticator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users map[string]string
	if err := yaml.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	for user, hash := range users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("users file: user %q: not a bcrypt hash", user)
		}
	}
	return NewBasicAuthenticator(users), nil
}

// HashPassword returns the bcrypt hash of password for the users file.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks username and password.
func (b *BasicAuthenticator) Verify(username, password string) error {
	b.mu.RLock()
	hash, ok := b.users[username]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: invalid password", domain.ErrUnauthorized)
	}
	return nil
}

// Scheme implements Authenticator.
func (b *BasicAuthenticator) Scheme() string {
	return "Basic"
}

// Authenticate implements Authenticator. credentials is the base64 part of
// the Authorization header.
func (b *BasicAuthenticator) Authenticate(_ context.Context, credentials string) (Identity, error) {
	raw, err := base64.StdEncoding.DecodeString(credentials)
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: malformed basic credentials", domain.ErrUnauthorized)
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok || username == "" {
		return Anonymous(), fmt.Errorf("%w: malformed basic credentials", domain.ErrUnauthorized)
	}
	if err := b.Verify(username, password); err != nil {
		return Anonymous(), err
	}
	return Identity{Username: username, Method: "basic"}, nil
}
