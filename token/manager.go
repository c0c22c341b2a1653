// Package token issues and verifies the signed credential that backs a
// stateless browser session. There is no server-side session record:
// the token alone proves identity, role, and expiry.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature scheme.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// ErrInvalid is returned for any token that fails verification:
// bad signature, expired, malformed, or issued by someone else.
var ErrInvalid = errors.New("invalid session token")

// minSecretLen guards hs256 against trivially brute-forced secrets.
const minSecretLen = 32

// Config configures a Manager.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the hs256 signing key.
	Secret []byte
	// PrivateKey and PublicKey carry ed25519 keys, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte

	Issuer string
	Leeway time.Duration

	// DefaultTTL applies to roles absent from RoleTTL. Privileged
	// roles get shorter lifetimes than student sessions.
	DefaultTTL time.Duration
	RoleTTL    map[string]time.Duration
}

// Claims is the session payload. Subject carries the user ID.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and parses session tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects the time source used for issued-at and expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager validates cfg and returns a manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.DefaultTTL <= 0 {
		return nil, errors.New("token: default TTL must be positive")
	}
	for role, ttl := range cfg.RoleTTL {
		if ttl <= 0 {
			return nil, fmt.Errorf("token: TTL for role %q must be positive", role)
		}
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: leeway out of range")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < minSecretLen {
			return nil, fmt.Errorf("token: hs256 secret must be at least %d bytes", minSecretLen)
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("token: unsupported signing method %q", cfg.SigningMethod)
	}

	m := &Manager{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTLForRole returns the session lifetime for a role.
func (m *Manager) TTLForRole(role string) time.Duration {
	if ttl, ok := m.config.RoleTTL[role]; ok {
		return ttl
	}
	return m.config.DefaultTTL
}

// Issue signs a session token for the user. The returned TTL is the
// role lifetime, used by callers to scope the cookie.
func (m *Manager) Issue(userID, email, role string) (string, time.Duration, error) {
	ttl := m.TTLForRole(role)
	now := m.now()

	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(m.method(), claims)
	signKey, err := m.signKey()
	if err != nil {
		return "", 0, err
	}
	signed, err := tok.SignedString(signKey)
	if err != nil {
		return "", 0, err
	}
	return signed, ttl, nil
}

// Parse verifies a session token and returns its claims. All failure
// modes collapse into ErrInvalid; callers never learn whether a bad
// token was expired, forged, or garbage.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.Secret, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.Secret, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return edKey, nil
}
