package model

// Farmer is the aggregated per-farmer row reviewers (scientists) read from
// the server hierarchy. Read-only on the client.
type Farmer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	RecordCount int    `json:"recordCount"`
}
