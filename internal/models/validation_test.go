package models

import (
	"strings"
	"testing"
)

func TestValidateTopicName(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{name: "simple", topic: "release planning", wantErr: false},
		{name: "empty is valid", topic: "", wantErr: false},
		{name: "exactly max length", topic: strings.Repeat("a", MaxTopicLength), wantErr: false},
		{name: "too long", topic: strings.Repeat("a", MaxTopicLength+1), wantErr: true},
		{name: "multibyte counts runes not bytes", topic: strings.Repeat("✔", MaxTopicLength), wantErr: false},
		{name: "newline", topic: "line\nbreak", wantErr: true},
		{name: "null byte", topic: "nul\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopicName(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTopicName(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			}
		})
	}
}

func TestPropagateMode_Valid(t *testing.T) {
	for _, mode := range []PropagateMode{PropagateOne, PropagateLater, PropagateAll} {
		if !mode.Valid() {
			t.Errorf("expected %q to be valid", mode)
		}
	}
	if PropagateMode("change_some").Valid() {
		t.Error("expected unknown mode to be invalid")
	}
	if PropagateMode("").Valid() {
		t.Error("expected empty mode to be invalid")
	}
}

func TestTopicEditRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TopicEditRequest
		wantErr bool
	}{
		{
			name: "topic rename",
			req: TopicEditRequest{
				OrigRecipientID: 10,
				OrigTopicName:   "old",
				TargetTopicName: "new",
				IsTopicEdited:   true,
				PropagateMode:   PropagateAll,
			},
			wantErr: false,
		},
		{
			name: "conversation move",
			req: TopicEditRequest{
				OrigRecipientID:   10,
				OrigTopicName:     "old",
				TargetRecipientID: 20,
				IsRecipientEdited: true,
				PropagateMode:     PropagateLater,
			},
			wantErr: false,
		},
		{
			name: "no change requested",
			req: TopicEditRequest{
				OrigRecipientID: 10,
				OrigTopicName:   "old",
				PropagateMode:   PropagateOne,
			},
			wantErr: true,
		},
		{
			name: "unknown propagate mode",
			req: TopicEditRequest{
				OrigRecipientID: 10,
				OrigTopicName:   "old",
				TargetTopicName: "new",
				IsTopicEdited:   true,
				PropagateMode:   "change_some",
			},
			wantErr: true,
		},
		{
			name: "move to same conversation",
			req: TopicEditRequest{
				OrigRecipientID:   10,
				OrigTopicName:     "old",
				TargetRecipientID: 10,
				IsRecipientEdited: true,
				PropagateMode:     PropagateAll,
			},
			wantErr: true,
		},
		{
			name: "move without target conversation",
			req: TopicEditRequest{
				OrigRecipientID:   10,
				OrigTopicName:     "old",
				IsRecipientEdited: true,
				PropagateMode:     PropagateAll,
			},
			wantErr: true,
		},
		{
			name: "target topic too long",
			req: TopicEditRequest{
				OrigRecipientID: 10,
				OrigTopicName:   "old",
				TargetTopicName: strings.Repeat("x", MaxTopicLength+1),
				IsTopicEdited:   true,
				PropagateMode:   PropagateAll,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
