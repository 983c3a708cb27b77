// Package topic implements topic-name normalization and history
// aggregation for channel conversations.
//
// Topic names are stored case-preserving but compared case-insensitively.
// Resolution state is encoded entirely in the name: a topic is resolved
// iff its stored name begins with ResolvedTopicPrefix.
package topic

import (
	"errors"
	"fmt"
	"strings"
)

// ResolvedTopicPrefix marks a topic as resolved. Resolving and
// unresolving a topic is purely a title change.
const ResolvedTopicPrefix = "✔ "

// EmptyTopicFallbackName is the display label substituted for the empty
// topic name in contexts that disallow empty names.
const EmptyTopicFallbackName = "general chat"

// LegacyNoTopicName is the literal marker older clients stored instead
// of an empty topic name.
const LegacyNoTopicName = "(no topic)"

// Message-info field names accepted from external input. "topic" is
// preferred; "subject" is kept for compatibility.
const (
	FieldTopic   = "topic"
	FieldSubject = "subject"
)

// ErrNoTopicField is returned when external message info carries
// neither a "topic" nor a "subject" field.
var ErrNoTopicField = errors.New("message info has no topic or subject field")

// Fold maps a topic name to its case-insensitive identity key. Every
// comparison of topic names, in memory or in SQL, must go through this
// one fold: SQLite's built-in lower() only folds ASCII and would split
// "Ärger" and "ärger" into two topics.
func Fold(topicName string) string {
	return strings.ToLower(topicName)
}

// ResolutionAndBareName inspects a stored topic name and returns
// whether the topic is resolved, along with the name stripped of the
// resolution prefix if present.
func ResolutionAndBareName(storedName string) (bool, string) {
	if strings.HasPrefix(storedName, ResolvedTopicPrefix) {
		return true, strings.TrimPrefix(storedName, ResolvedTopicPrefix)
	}
	return false, storedName
}

// RenameFallbackToEmpty maps the fallback display label back to the
// empty topic name.
func RenameFallbackToEmpty(topicName string) string {
	if topicName == EmptyTopicFallbackName {
		return ""
	}
	return topicName
}

// RenameLegacyMarkerToEmpty maps the legacy "(no topic)" marker to the
// empty topic name.
func RenameLegacyMarkerToEmpty(topicName string) string {
	if topicName == LegacyNoTopicName {
		return ""
	}
	return topicName
}

// RenameEmptyToFallback substitutes the fallback label for an empty
// topic name on a channel message when empty names are disallowed.
// All other names pass through unchanged.
func RenameEmptyToFallback(topicName string, isChannelMessage, allowEmptyTopicName bool) string {
	if isChannelMessage && topicName == "" && !allowEmptyTopicName {
		return EmptyTopicFallbackName
	}
	return topicName
}

// FromMessageInfo extracts a topic name from message dicts that may
// come from the outside world, especially third-party APIs and bots.
// "topic" is preferred over "subject". A missing or non-string field is
// the caller's error to handle; nothing is defaulted silently.
func FromMessageInfo(messageInfo map[string]any) (string, error) {
	for _, field := range []string{FieldTopic, FieldSubject} {
		value, ok := messageInfo[field]
		if !ok {
			continue
		}
		name, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("message info field %q is %T, not a string", field, value)
		}
		return name, nil
	}
	return "", ErrNoTopicField
}
