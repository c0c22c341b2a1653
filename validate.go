package authcore

import (
	"regexp"
	"strings"
)

// FieldError names the first login field that failed validation.
// Message is safe to show to the client.
type FieldError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// emailPattern is deliberately loose: one @, no whitespace, a dot in
// the domain. The user store is the authority on which emails exist.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateLogin checks the payload field by field in declared order
// and reports only the first failure, so the client fixes one thing
// at a time. On success the returned request carries the lowercased
// email and canonical role.
func ValidateLogin(req LoginRequest) (LoginRequest, *FieldError) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return LoginRequest{}, &FieldError{Field: "email", Message: "Email is required."}
	}
	if !emailPattern.MatchString(email) {
		return LoginRequest{}, &FieldError{Field: "email", Message: "Enter a valid email address."}
	}
	if req.Password == "" {
		return LoginRequest{}, &FieldError{Field: "password", Message: "Password is required."}
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		return LoginRequest{}, &FieldError{Field: "role", Message: "Select a valid role: student, officer or admin."}
	}

	out := req
	out.Email = email
	out.Role = string(role)
	return out, nil
}
