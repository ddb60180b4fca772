// Package api is the HTTP gateway to the forum server: the OAuth password
// grant and the v3 JSON API (current user, unread notification count, device
// push registrations). It implements domain.Gateway.
package api
