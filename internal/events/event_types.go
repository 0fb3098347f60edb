package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventTokenRotated    EventType = "token_rotated"
	EventTokenRevoked    EventType = "token_revoked"
	EventCocktailCreated EventType = "cocktail_created"
	EventCocktailDeleted EventType = "cocktail_deleted"
)

// AllEventTypes lists every type services publish.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventTokenRotated,
	EventTokenRevoked,
	EventCocktailCreated,
	EventCocktailDeleted,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, actorID string, payload interface{}) Event {
	return Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
}

// TokenRotatedPayload payload.
type TokenRotatedPayload struct {
	OldTokenID string `json:"old_token_id"`
	NewTokenID string `json:"new_token_id"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CocktailPayload payload for cocktail lifecycle events.
type CocktailPayload struct {
	CocktailID int64  `json:"cocktail_id"`
	Name       string `json:"name,omitempty"`
}
