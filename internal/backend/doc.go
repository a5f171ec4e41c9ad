// Package backend is a typed client for the learning platform's
// authentication and second-factor endpoints.
package backend
