package types

import "time"

// Entity carries the audit fields shared by every ledger record.
// Embed this in domain types.
type Entity struct {
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with the current time.
func NewEntity(actor string) Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
