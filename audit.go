package authcore

import (
	"io"

	"github.com/kwasu-clearance/authcore/internal/audit"
)

// AuditEvent is the audit record emitted for every decided login
// attempt and session verification failure.
type AuditEvent = audit.Event

// AuditSink receives audit events. Implementations must tolerate
// concurrent calls.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events for in-process consumers.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON audit line per event.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a channel-backed sink.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a line-oriented JSON sink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit action names, one per decided outcome.
const (
	auditLoginSuccess      = "login_success"
	auditLoginFailure      = "login_failure"
	auditLoginRateLimited  = "login_rate_limited"
	auditBotCheckRejected  = "bot_check_rejected"
	auditValidationFailure = "login_validation_failure"
	auditAccountLocked     = "account_locked"
	auditRoleMismatch      = "login_role_mismatch"
	auditAccountInactive   = "login_account_inactive"
	auditSessionRejected   = "session_rejected"
)
