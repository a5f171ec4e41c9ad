// Package proxy forwards gateway requests to the learning platform backend.
//
// The Forwarder maps a request for <path> onto <origin>/api/<path>, strips
// hop-by-hop headers in both directions and returns the backend's reply
// unchanged otherwise. Transport failures become a synthetic 502 response
// paired with a classified ConnectionError.
package proxy
