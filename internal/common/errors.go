// Package common defines shared constants and sentinel errors used across
// fieldsync components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository/gateway-level errors.
	ErrNotFound = errors.New("not found")

	// Sync pass precondition errors.
	ErrNoConnection = errors.New("no connection")
	ErrNoUser       = errors.New("no user")
	ErrSyncRunning  = errors.New("sync already running")

	// Storage errors. Read failures degrade to empty results and are only
	// logged; write failures carry this sentinel and propagate, because
	// silently dropping a user-authored record is never acceptable.
	ErrStorageWrite = errors.New("storage write failed")

	// Auth errors surfaced from the remote API.
	ErrUnauthorized = errors.New("unauthorized")
)
