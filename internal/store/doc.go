// Package store implements the durable credential store and profile cache.
//
// Two backends: encrypted files under a data directory (the default, one
// installation per process) and Redis (shared server-side deployments). The
// credential is encrypted at the store layer in both backends; the profile
// cache is a plain JSON hint. Reads fail open: any read problem is logged
// and reported as "absent" so the session degrades to logged out.
package store
