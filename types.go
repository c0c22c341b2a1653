package authcore

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Role is the portal role a session is scoped to.
type Role string

const (
	// RoleStudent is an exported constant used by the clearance portal.
	RoleStudent Role = "student"
	// RoleOfficer is an exported constant used by the clearance portal.
	RoleOfficer Role = "officer"
	// RoleAdmin is an exported constant used by the clearance portal.
	RoleAdmin Role = "admin"
)

// ParseRole canonicalizes a client-supplied role string.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleOfficer:
		return RoleOfficer, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// UserRecord is the account shape the engine reads from the caller's
// user store. PasswordHash is an argon2id PHC string.
type UserRecord struct {
	ID           string
	Email        string
	FullName     string
	Role         Role
	PasswordHash string
	Active       bool
}

// UserProvider is the lookup boundary to the application's account
// store. Implementations return ErrUserNotFound for unknown emails
// and keep any other error for genuine backend failure.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
}

// AuthUser is the sanitized account shape returned to callers after a
// successful login. The password hash never leaves the engine.
type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     Role   `json:"role"`
}

// LoginRequest is one authentication attempt as received from the
// transport layer. Fields are raw client input; the engine validates
// and canonicalizes them itself.
type LoginRequest struct {
	Email    string
	Password string
	Role     string
	BotToken string
	ClientIP string
}

// Code identifies the failure class of a login decision.
type Code string

const (
	// CodeRateLimited is an exported constant used by the clearance portal.
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeBotCheckFailed is an exported constant used by the clearance portal.
	CodeBotCheckFailed Code = "BOT_CHECK_FAILED"
	// CodeVerificationError is an exported constant used by the clearance portal.
	CodeVerificationError Code = "VERIFICATION_ERROR"
	// CodeValidationFailed is an exported constant used by the clearance portal.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeAccountLocked is an exported constant used by the clearance portal.
	CodeAccountLocked Code = "ACCOUNT_LOCKED"
	// CodeInvalidCredentials is an exported constant used by the clearance portal.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	// CodeRoleMismatch is an exported constant used by the clearance portal.
	CodeRoleMismatch Code = "ROLE_MISMATCH"
	// CodeAccountInactive is an exported constant used by the clearance portal.
	CodeAccountInactive Code = "ACCOUNT_INACTIVE"
)

// Decision is the structured outcome of one authentication attempt.
// Policy refusals are encoded here, never as returned errors.
type Decision struct {
	OK      bool
	Status  int
	Code    Code
	Message string

	// RetryAfter is set on rate-limit and lockout refusals.
	RetryAfter time.Duration

	// The rest is populated only when OK.
	User   *AuthUser
	Token  string
	Cookie *http.Cookie
}
