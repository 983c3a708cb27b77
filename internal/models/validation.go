package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTopicLength is the maximum topic name length in characters.
const MaxTopicLength = 60

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors aggregates multiple validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Add records a validation error for a field.
func (v *ValidationErrors) Add(field, message string) {
	if message == "" {
		return
	}
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// Err returns nil if there are no errors, otherwise the aggregate.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Error implements error.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var builder strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.Error())
	}

	return builder.String()
}

// ValidateTopicName checks that a topic name is storable. The empty
// string is valid: it denotes the empty topic, which the display layer
// substitutes with a fallback label.
func ValidateTopicName(name string) error {
	if utf8.RuneCountInString(name) > MaxTopicLength {
		return ValidationError{Field: "topic", Message: fmt.Sprintf("cannot be longer than %d characters", MaxTopicLength)}
	}
	if strings.ContainsAny(name, "\x00\n") {
		return ValidationError{Field: "topic", Message: "cannot contain null bytes or newlines"}
	}
	return nil
}

// Validate checks the edit request for internal consistency.
func (r *TopicEditRequest) Validate() error {
	errs := &ValidationErrors{}

	if !r.PropagateMode.Valid() {
		errs.Add("propagate_mode", fmt.Sprintf("unknown mode %q", string(r.PropagateMode)))
	}
	if !r.IsTopicEdited && !r.IsRecipientEdited {
		errs.Add("", "edit request changes neither topic nor conversation")
	}
	if r.IsTopicEdited {
		if err := ValidateTopicName(r.TargetTopicName); err != nil {
			errs.Add("target_topic_name", err.Error())
		}
	}
	if r.IsRecipientEdited && r.TargetRecipientID == 0 {
		errs.Add("target_recipient_id", "is required when moving conversations")
	}
	if r.IsRecipientEdited && r.TargetRecipientID == r.OrigRecipientID {
		errs.Add("target_recipient_id", "matches the original conversation")
	}

	return errs.Err()
}
