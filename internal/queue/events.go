package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sociable/internal/model"
)

// Event types carried over the streams
const (
	EventUserCreated = "user_created"
	EventUserUpdated = "user_updated"
	EventUserDeleted = "user_deleted"

	EventRelationshipQuery  = "relationship_query"
	EventRelationshipAnswer = "relationship_answer"
)

// Stream names
const (
	// StreamUserEvents carries account lifecycle snapshots for downstream
	// services that mirror user data.
	StreamUserEvents = "stream:user_events"

	// StreamRelationshipQueries carries correlated queries from other
	// services asking for a user's followers or blocked users;
	// StreamRelationshipAnswers carries the replies.
	StreamRelationshipQueries = "stream:relationship_queries"
	StreamRelationshipAnswers = "stream:relationship_answers"
)

// ConsumerGroupRelationship is the consumer group answering relationship queries
const ConsumerGroupRelationship = "relationship_workers"

// Relationship query kinds
const (
	QueryFollowers    = "followers"
	QueryBlockedUsers = "blocked_users"
)

// UserSnapshot is the cross-service projection of an account. Email rides
// along because downstream services are trusted; per-viewer privacy only
// applies at the HTTP surface.
type UserSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Slug     string    `json:"slug"`
	Email    string    `json:"email"`
}

// SnapshotUser builds the snapshot published on lifecycle events.
func SnapshotUser(u *model.User) UserSnapshot {
	return UserSnapshot{
		ID:       u.ID,
		Username: u.Username,
		Slug:     u.Slug,
		Email:    u.Email,
	}
}

// UserEvent is an account lifecycle event published to StreamUserEvents.
type UserEvent struct {
	Type      string       `json:"type"`
	Timestamp int64        `json:"timestamp"`
	User      UserSnapshot `json:"user"`
}

// NewUserEvent creates a lifecycle event for the given type.
func NewUserEvent(eventType string, u *model.User) UserEvent {
	return UserEvent{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		User:      SnapshotUser(u),
	}
}

// RelationshipQuery asks for a user's follower or blocked-user ids. The
// RequestID correlates the eventual answer with the asking service's call.
type RelationshipQuery struct {
	RequestID string    `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Timestamp int64     `json:"timestamp"`
}

// RelationshipAnswer is the reply to a RelationshipQuery. Status mirrors
// HTTP semantics: 200 with ids, 404 when the subject user does not exist.
type RelationshipAnswer struct {
	RequestID string      `json:"request_id"`
	Status    int         `json:"status"`
	UserIDs   []uuid.UUID `json:"user_ids,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Envelope is the generic wire shape of a stream entry: the payload is
// serialized to JSON in a "data" field next to its type tag.
type Envelope struct {
	Type string
	Data []byte
}

func envelopeMap(eventType string, payload interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": eventType,
		"data": string(data),
	}, nil
}

// ToMap converts the event to a map for Redis XADD.
func (e UserEvent) ToMap() (map[string]interface{}, error) {
	return envelopeMap(e.Type, e)
}

// ToMap converts the query to a map for Redis XADD.
func (q RelationshipQuery) ToMap() (map[string]interface{}, error) {
	return envelopeMap(EventRelationshipQuery, q)
}

// ToMap converts the answer to a map for Redis XADD.
func (a RelationshipAnswer) ToMap() (map[string]interface{}, error) {
	return envelopeMap(EventRelationshipAnswer, a)
}

// ParseEnvelope extracts the type tag and raw payload from stream values.
func ParseEnvelope(values map[string]interface{}) (Envelope, error) {
	eventType, ok := values["type"].(string)
	if !ok {
		return Envelope{}, fmt.Errorf("missing or invalid 'type' field")
	}
	data, ok := values["data"].(string)
	if !ok {
		return Envelope{}, fmt.Errorf("missing or invalid 'data' field")
	}
	return Envelope{Type: eventType, Data: []byte(data)}, nil
}

// ParseRelationshipQuery decodes a query payload.
func ParseRelationshipQuery(data []byte) (RelationshipQuery, error) {
	var q RelationshipQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return RelationshipQuery{}, fmt.Errorf("unmarshal relationship query: %w", err)
	}
	return q, nil
}

// ParseUserEvent decodes a lifecycle event payload.
func ParseUserEvent(data []byte) (UserEvent, error) {
	var e UserEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return UserEvent{}, fmt.Errorf("unmarshal user event: %w", err)
	}
	return e, nil
}
