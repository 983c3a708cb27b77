// Package models defines the core data structures for Quill.
package models

import (
	"time"
)

// Message represents a message row in the relational store.
//
// Messages are created and content-edited by the send/edit subsystem;
// the topic layer only reads them and performs id-scoped updates.
type Message struct {
	// ID is the monotonically increasing message id, used as an
	// ordering proxy for recency.
	ID int64 `json:"id"`

	// RealmID scopes the message to a tenant/workspace.
	RealmID int64 `json:"realm_id"`

	// RecipientID identifies the conversation (channel) the message
	// belongs to.
	RecipientID int64 `json:"recipient_id"`

	// SenderID is the user who sent the message.
	SenderID int64 `json:"sender_id"`

	// Subject is the topic name. Stored case-preserving, matched
	// case-insensitively.
	Subject string `json:"subject"`

	// Content is the message body.
	Content string `json:"content"`

	// IsChannelMessage is true for messages in channel-like
	// conversations (as opposed to direct messages).
	IsChannelMessage bool `json:"is_channel_message"`

	// LastEditTime is when the message was last edited, nil if never.
	LastEditTime *time.Time `json:"last_edit_time,omitempty"`

	// EditHistory is a text-encoded JSON array of EditHistoryEvent,
	// newest first. Nil means no edits.
	EditHistory *string `json:"edit_history,omitempty"`

	// DateSent is when the message was sent.
	DateSent time.Time `json:"date_sent"`
}

// EditHistoryEvent is an immutable record of a single edit, prepended
// to a message's edit history.
type EditHistoryEvent struct {
	UserID    int64 `json:"user_id"`
	Timestamp int64 `json:"timestamp"`

	// PrevTopic and Topic are set when the topic name changed.
	PrevTopic *string `json:"prev_topic,omitempty"`
	Topic     *string `json:"topic,omitempty"`

	// PrevRecipientID and RecipientID are set when the message moved
	// between conversations.
	PrevRecipientID *int64 `json:"prev_recipient_id,omitempty"`
	RecipientID     *int64 `json:"recipient_id,omitempty"`

	// PrevContent is set when the message body changed.
	PrevContent *string `json:"prev_content,omitempty"`
}

// TopicHistoryEntry is a derived, read-only projection: one entry per
// canonical (case-folded) topic name within a conversation, carrying
// the most-recently-used literal casing and the highest message id.
type TopicHistoryEntry struct {
	Name  string `json:"name"`
	MaxID int64  `json:"max_id"`
}

// PropagateMode selects how many messages in a topic an edit affects.
type PropagateMode string

const (
	// PropagateOne edits only the target message.
	PropagateOne PropagateMode = "change_one"

	// PropagateLater edits the target message and all later messages
	// in the same topic.
	PropagateLater PropagateMode = "change_later"

	// PropagateAll edits every message in the topic.
	PropagateAll PropagateMode = "change_all"
)

// Valid reports whether the mode is one of the known propagation modes.
func (m PropagateMode) Valid() bool {
	switch m {
	case PropagateOne, PropagateLater, PropagateAll:
		return true
	}
	return false
}

// TopicEditRequest describes a topic rename and/or conversation move.
type TopicEditRequest struct {
	// OrigRecipientID is the conversation the messages currently live in.
	OrigRecipientID int64

	// OrigTopicName is the topic being edited, matched case-insensitively.
	OrigTopicName string

	// TargetRecipientID is the destination conversation. Only meaningful
	// when IsRecipientEdited is true.
	TargetRecipientID int64

	// TargetTopicName is the new topic name. Only meaningful when
	// IsTopicEdited is true.
	TargetTopicName string

	// IsTopicEdited is true when the topic name is changing.
	IsTopicEdited bool

	// IsRecipientEdited is true when the messages move to a different
	// conversation.
	IsRecipientEdited bool

	// PropagateMode selects the affected-message policy.
	PropagateMode PropagateMode
}
