package models

import "time"

// ReactionKind is the kind of interaction a viewer records on a post
type ReactionKind string

const (
	ReactionLike     ReactionKind = "like"
	ReactionBookmark ReactionKind = "bookmark"
)

// Valid reports whether k is a known kind
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionBookmark
}

// ReactionState tells whether the server count already includes a reaction
type ReactionState string

const (
	// ReactionPending is recorded locally only; displayed counts add one
	ReactionPending ReactionState = "pending"
	// ReactionConfirmed is already reflected in the server supplied count
	ReactionConfirmed ReactionState = "confirmed"
	// ReactionWithdrawn is a confirmed reaction the viewer took back; the
	// server count still includes it, so displayed counts subtract one
	ReactionWithdrawn ReactionState = "withdrawn"
)

// Reaction is a viewer's like or bookmark on a post
type Reaction struct {
	ViewerID  string        `json:"viewer_id"`
	EntityID  string        `json:"entity_id"`
	Kind      ReactionKind  `json:"kind"`
	State     ReactionState `json:"state"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ReactionEvent reports a flipped reaction to the viewer who flipped it
type ReactionEvent struct {
	Type     string       `json:"type"`
	EntityID string       `json:"entity_id"`
	Kind     ReactionKind `json:"kind"`
	Active   bool         `json:"active"`
	Count    int          `json:"count"`
}
