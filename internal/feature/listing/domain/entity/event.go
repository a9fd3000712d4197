package entity

import "time"

// EventType names a lifecycle change published to subscribers.
type EventType string

const (
	EventCreated     EventType = "listing.created"
	EventUpdated     EventType = "listing.updated"
	EventClaimed     EventType = "listing.claimed"
	EventDistributed EventType = "listing.distributed"
	EventExpired     EventType = "listing.expired"
	EventDeleted     EventType = "listing.deleted"
)

// Event describes a change to a listing.
type Event struct {
	Type       EventType `json:"type"`
	ListingID  string    `json:"listing_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Status     Status    `json:"status,omitempty"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
