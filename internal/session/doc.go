// Package session owns the session state machine: login, logout, process-start
// rehydration, profile and unread-count reconciliation, and device push
// registration.
//
// All in-memory state lives behind one mutex. Network calls run outside the
// lock; every call captures the session epoch first and re-checks it before
// applying its result, so a result that arrives after a logout (or any other
// teardown) is discarded instead of resurrecting the session.
package session
