// Package authcore is the authentication and request-governance core
// of the KWASU clearance portal. It decides, for every login attempt,
// whether the caller gets a session: rate limiting by client identity,
// bot-score verification, input validation, per-account lockout,
// credential checks, and finally a signed stateless session token.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Decision, MetricsSnapshot, AuditEvent).
// Backing stores, the window limiter, the lockout tracker, and audit
// dispatch live under internal/ and are never exported.
//
// # Decision contract
//
// Authenticate never reports a policy refusal through its error
// return. Rejections of every kind come back as a [Decision] carrying
// the HTTP status, a machine code, and the client-safe message. The
// error return is reserved for backend breakage: an unreachable
// store, an unreachable bot-score provider, a signing failure.
package authcore
