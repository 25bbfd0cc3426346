// Package model defines the data types shared by the fieldsync storage,
// gateway and service layers.
package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provenance says which side authored the copy of a record currently held.
type Provenance string

const (
	ProvenanceServer Provenance = "server"
	ProvenanceLocal  Provenance = "local"
)

// StatusDeleted is the terminal status used for client-side soft deletes
// (e.g. when the server already removed the record).
const StatusDeleted = "deleted"

// Record is a unit of user-authored state with an embedded action log.
// A record fetched from the server carries its server-assigned id and
// Provenance=server; a record created offline carries a "local-*" id,
// Provenance=local and Synced=false until a sync pass pushes it.
type Record struct {
	ID       string `json:"id"`
	Owner    string `json:"owner" validate:"required"`
	Crop     string `json:"crop" validate:"required"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// Extra holds free-form attributes (numeric readings, ad-hoc notes)
	// that have no dedicated column anywhere.
	Extra map[string]string `json:"extra,omitempty"`

	History []Action `json:"history,omitempty"`

	Provenance Provenance `json:"provenance,omitempty"`
	Synced     bool       `json:"syncState"`
	CreatedAt  time.Time  `json:"createdAt"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the record at the store/gateway boundary: required fields
// via struct tags, plus membership of every history entry's type in the
// fixed action enumeration.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	for _, a := range r.History {
		if !a.Type.Known() {
			return fmt.Errorf("invalid record: unknown action type %q", a.Type)
		}
	}
	return nil
}

// Deleted reports whether the record carries the terminal soft-delete status.
func (r *Record) Deleted() bool {
	return r.Status == StatusDeleted
}

// AppendAction adds a to the history log. History is append-biased: entries
// are only ever removed by explicit user deletion.
func (r *Record) AppendAction(a Action) {
	r.History = append(r.History, a)
}

// RemoveAction deletes the history entry with the given id and reports
// whether one was found.
func (r *Record) RemoveAction(actionID string) bool {
	for i, a := range r.History {
		if a.ID == actionID {
			r.History = append(r.History[:i], r.History[i+1:]...)
			return true
		}
	}
	return false
}

// SyncMetadata tracks the outcome of the last completed sync pass.
// LastSyncTimestamp stays nil until the first pass finishes; a pass with
// nothing pending still counts.
type SyncMetadata struct {
	LastSyncTimestamp *time.Time `json:"lastSyncTimestamp"`
}

// Description renders a human-readable last-sync line for status displays.
func (m SyncMetadata) Description() string {
	if m.LastSyncTimestamp == nil {
		return "never synchronized"
	}
	return "last synchronized " + m.LastSyncTimestamp.Local().Format(time.RFC3339)
}
