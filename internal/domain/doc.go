// Package domain defines the core session types and interfaces.
//
// Concept-oriented files (credential.go, user.go, gateway.go, errors.go) with
// shared types and cross-cutting contracts. No implementation code - the
// interfaces live here, on the consumer side, to prevent circular imports.
package domain
