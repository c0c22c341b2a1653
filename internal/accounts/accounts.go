// Package accounts provides a read-only user provider backed by a
// YAML roster file. The clearance office exports the roster from the
// student records system; the portal never mutates it.
package accounts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	authcore "github.com/kwasu-clearance/authcore"
)

type rosterFile struct {
	Accounts []rosterEntry `yaml:"accounts"`
}

type rosterEntry struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	FullName     string `yaml:"full_name"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
	Active       bool   `yaml:"active"`
}

// Provider serves user records from an in-memory index keyed by
// canonical email. It is immutable after load and safe for concurrent
// use.
type Provider struct {
	byEmail map[string]authcore.UserRecord
}

// Load reads and indexes a roster file.
func Load(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	p, err := FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return p, nil
}

// FromReader parses a YAML roster from r.
func FromReader(r io.Reader) (*Provider, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	byEmail := make(map[string]authcore.UserRecord, len(file.Accounts))
	for i, entry := range file.Accounts {
		email := strings.ToLower(strings.TrimSpace(entry.Email))
		if email == "" {
			return nil, fmt.Errorf("account %d: missing email", i)
		}
		if entry.ID == "" {
			return nil, fmt.Errorf("account %s: missing id", email)
		}
		if entry.PasswordHash == "" {
			return nil, fmt.Errorf("account %s: missing password_hash", email)
		}
		role, ok := authcore.ParseRole(entry.Role)
		if !ok {
			return nil, fmt.Errorf("account %s: unknown role %q", email, entry.Role)
		}
		if _, exists := byEmail[email]; exists {
			return nil, fmt.Errorf("account %s: duplicate email", email)
		}
		byEmail[email] = authcore.UserRecord{
			ID:           entry.ID,
			Email:        email,
			FullName:     entry.FullName,
			Role:         role,
			PasswordHash: entry.PasswordHash,
			Active:       entry.Active,
		}
	}

	return &Provider{byEmail: byEmail}, nil
}

// Len reports the number of indexed accounts.
func (p *Provider) Len() int {
	if p == nil {
		return 0
	}
	return len(p.byEmail)
}

// GetUserByEmail implements [authcore.UserProvider]. The engine hands
// in an already canonicalized email.
func (p *Provider) GetUserByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	u, ok := p.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return u, nil
}
