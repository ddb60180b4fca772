// Package server exposes the session over HTTP: login/logout/state endpoints,
// a websocket stream of session events, and the usual health, metrics, and
// version endpoints.
package server
