package internaldefs

import (
	authcore "github.com/kwasu-clearance/authcore"
)

// CounterDef binds one engine counter to its exported name and help text.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine latency histogram to its exported name and help text.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the clearance portal exporters.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricBotCheckRejected, Name: "authcore_bot_check_rejected_total", Help: "Login attempts rejected by bot-score verification."},
	{ID: authcore.MetricBotCheckSkipped, Name: "authcore_bot_check_skipped_total", Help: "Login attempts where bot-score verification was not configured."},
	{ID: authcore.MetricBotCheckUnavailable, Name: "authcore_bot_check_unavailable_total", Help: "Login attempts aborted because the bot-score provider was unreachable."},
	{ID: authcore.MetricValidationRejected, Name: "authcore_validation_rejected_total", Help: "Login attempts rejected by field validation."},
	{ID: authcore.MetricLockoutHit, Name: "authcore_lockout_hit_total", Help: "Login attempts refused against an already locked account."},
	{ID: authcore.MetricLockoutTriggered, Name: "authcore_lockout_triggered_total", Help: "Failed attempts that crossed the lockout threshold."},
	{ID: authcore.MetricRoleMismatch, Name: "authcore_role_mismatch_total", Help: "Login attempts with a role not matching the account."},
	{ID: authcore.MetricAccountInactive, Name: "authcore_account_inactive_total", Help: "Login attempts against deactivated accounts."},
	{ID: authcore.MetricSessionIssued, Name: "authcore_session_issued_total", Help: "Issued session tokens."},
	{ID: authcore.MetricSessionVerified, Name: "authcore_session_verified_total", Help: "Successfully verified session tokens."},
	{ID: authcore.MetricSessionRejected, Name: "authcore_session_rejected_total", Help: "Rejected session tokens."},
}

// HistogramDefs is an exported constant or variable used by the clearance portal exporters.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the clearance portal exporters.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the clearance portal exporters.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a raw bucket slice into a fixed-size array,
// padding missing trailing buckets with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
