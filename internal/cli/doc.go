// Package cli provides the terminal-facing helpers shared by lmsgate commands.
//
// # Core Components
//
// Errors map gateway and backend failures onto types that carry guidance
// and an exit code:
//   - AuthRequiredError: no credential is held
//   - AuthExpiredError: the backend rejected the held credential, or refresh failed
//   - AuthFailedError: a password, challenge code or 2FA change was rejected
//   - RateLimitedError: the local limiter refused the call
//
// Output helpers render key/value and list tables with go-pretty, and
// Progress shows a spinner while a network call is in flight.
//
// Prompter reads interactive input through readline; Secret reads without
// echo and is used for passwords and one-time codes.
//
// # Usage Example
//
//	p := cli.StartProgress(os.Stderr, quiet, "Signing in...")
//	result, err := client.Login(ctx, email, password)
//	if err != nil {
//	    p.Fail("Sign-in failed")
//	    return cli.Translate(err, origin, backend.PathLogin)
//	}
//	p.Stop()
package cli
