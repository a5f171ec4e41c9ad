// Package app provides application bootstrap, lifecycle management and service wiring for lmsgate.
//
// # Architecture Overview
//
// The app package is the composition root. It has four parts:
//
//  1. **Bootstrap (`bootstrap.go`)**: logging setup, configuration loading, Application lifecycle
//  2. **Configuration (`config.go`)**: runtime flags that sit on top of config.yaml
//  3. **Services (`services.go`)**: construction of every component and the middleware chain
//  4. **Modes (`modes.go`)**: the `serve` runtime
//
// ## Services
//
// InitializeServices builds one object graph per process:
//
//	HTTP /api/<path>
//	      │
//	      ▼
//	Instrument → RateLimit → Credential → Cache → Forwarder → <origin>/api/<path>
//	                             ▲
//	                       session.Manager ◄── backend.Client (refresh)
//
// The backend client issues its auth and 2FA calls through the same chain,
// so they share the rate limiter and metrics with passthrough traffic.
// Logging out purges the response cache.
//
// ## Serve mode
//
// runServe runs the HTTP server and the background AutoRefresher in one
// errgroup; in file mode a SlotWatcher reloads the credential when another
// process logs in or out. SIGINT and SIGTERM trigger graceful shutdown.
//
// # Usage
//
//	cfg := app.NewConfig(debug, false, configPath)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
