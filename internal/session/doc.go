// Package session holds the bearer credential for the current user and keeps
// it fresh.
//
// The Manager owns a single credential persisted in the session.json slot.
// It implements oauth2.TokenSource so the gateway can attach the token to
// outbound calls. The AutoRefresher renews the token shortly before its exp
// claim passes, and the SlotWatcher picks up credentials written by other
// lmsgate processes.
//
// Token claims are decoded without verifying the signature. They drive
// refresh scheduling and status display only; the backend remains the
// authority on whether a token is valid.
package session
