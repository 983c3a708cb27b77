package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes topic-edit events.
type EventType string

const (
	EventTypeTopicRenamed    EventType = "topic.renamed"
	EventTypeTopicMoved      EventType = "topic.moved"
	EventTypeTopicResolved   EventType = "topic.resolved"
	EventTypeTopicUnresolved EventType = "topic.unresolved"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeMessage   EntityType = "message"
	EntityTypeRecipient EntityType = "recipient"
)

// Event is an append-only audit record of a topic edit. It is distinct
// from EditHistoryEvent: the latter lives inside each message row, this
// one feeds the audit log and cache-invalidation subscribers.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TopicMovedPayload is the payload for topic.moved and topic.renamed
// events.
type TopicMovedPayload struct {
	RealmID           int64         `json:"realm_id"`
	ActingUserID      int64         `json:"acting_user_id"`
	OrigRecipientID   int64         `json:"orig_recipient_id"`
	TargetRecipientID int64         `json:"target_recipient_id,omitempty"`
	OrigTopic         string        `json:"orig_topic"`
	TargetTopic       string        `json:"target_topic,omitempty"`
	PropagateMode     PropagateMode `json:"propagate_mode"`
	MessageIDs        []int64       `json:"message_ids"`
}
