// Package stepup implements the two-step login flow and second-factor
// enrollment.
//
// Machine walks a login attempt from the password step, through an optional
// second-factor challenge, to an installed credential:
//
//	password_pending --password--> authenticated
//	password_pending --password--> challenge_pending --code--> authenticated_after_challenge
//	challenge_pending --cancel--> password_pending
//
// A rejected password or code leaves the machine where it was. Operations
// that do not apply to the current state return a TransitionError.
//
// Enrollment walks idle -> awaiting_code -> enabled and back to idle on
// disable. Backup codes issued on enable are handed out once through
// RecoveryCodes.
package stepup
