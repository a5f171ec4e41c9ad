// Package mock provides a scriptable fake of the learning platform backend
// for tests.
//
// Backend serves the auth, second-factor and enrollment endpoints with
// seeded users, issues HS256-signed tokens whose expiry follows an injectable
// Clock, and answers any other /api/ path with either a scripted Resource or
// an echo of the request. Every call is counted so tests can assert how many
// requests actually reached the network.
//
// Usage:
//
//	backend := mock.NewBackend(mock.BackendConfig{
//		Users: []mock.User{{ID: "1", Email: "a@x.com", Password: "p"}},
//	})
//	origin, err := backend.Start(ctx)
//	defer backend.Stop(ctx)
package mock
