package authcore

import "errors"

var (
	// ErrUserNotFound is returned by UserProvider implementations when
	// no account matches the email. The engine folds it into the same
	// response as a wrong password.
	ErrUserNotFound = errors.New("user not found")

	// ErrEngineNotReady is returned when an Engine method is called on
	// a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrTokenInvalid is returned by VerifySession for any token that
	// fails verification, with no distinction between expired, forged,
	// and malformed.
	ErrTokenInvalid = errors.New("invalid session token")
)
