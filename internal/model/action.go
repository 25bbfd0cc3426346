package model

import (
	"time"

	"github.com/google/uuid"
)

// ActionType tags an entry in a record's history.
type ActionType string

const (
	ActionSowing         ActionType = "sowing"
	ActionIrrigation     ActionType = "irrigation"
	ActionFertilization  ActionType = "fertilization"
	ActionTreatment      ActionType = "treatment"
	ActionHarvest        ActionType = "harvest"
	ActionStatusChange   ActionType = "status_change"
	ActionRecommendation ActionType = "recommendation"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionSowing:         {},
	ActionIrrigation:     {},
	ActionFertilization:  {},
	ActionTreatment:      {},
	ActionHarvest:        {},
	ActionStatusChange:   {},
	ActionRecommendation: {},
}

// Known reports whether t is part of the fixed action enumeration.
func (t ActionType) Known() bool {
	_, ok := knownActionTypes[t]
	return ok
}

// actionDescriptions carries the user-facing labels shown in history views.
// The product ships in Spanish.
var actionDescriptions = map[ActionType]string{
	ActionSowing:         "Siembra de cultivo",
	ActionIrrigation:     "Riego",
	ActionFertilization:  "Fertilización",
	ActionTreatment:      "Tratamiento fitosanitario",
	ActionHarvest:        "Cosecha",
	ActionStatusChange:   "Cambio de estado",
	ActionRecommendation: "Recomendación técnica",
}

// DefaultDescription returns the display label for t, or "" for unknown types.
func (t ActionType) DefaultDescription() string {
	return actionDescriptions[t]
}

// Action is one entry in a record's history. Type comes from the fixed
// enumeration above; Fields is an open extension map for free-form details
// (seed variety, dosage, old/new status, notes).
type Action struct {
	ID          string            `json:"id" validate:"required"`
	Type        ActionType        `json:"type" validate:"required"`
	Description string            `json:"action,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// NewAction builds an Action with a fresh identity and the current time.
// An empty description falls back to the type's default label.
func NewAction(t ActionType, description string, fields map[string]string) Action {
	if description == "" {
		description = t.DefaultDescription()
	}
	return Action{
		ID:          uuid.NewString(),
		Type:        t,
		Description: description,
		Timestamp:   time.Now().UTC(),
		Fields:      fields,
	}
}
