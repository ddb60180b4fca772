// Package crypto encrypts the persisted credential at rest.
//
// The credential store is required to be appropriate for secrets; this
// package provides the AES-256-GCM service the store backends use, plus a
// noop passthrough for development setups without a configured key.
package crypto
