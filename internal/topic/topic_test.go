package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolutionAndBareName(t *testing.T) {
	tests := []struct {
		name         string
		stored       string
		wantResolved bool
		wantBare     string
	}{
		{
			name:         "unresolved topic",
			stored:       "database migrations",
			wantResolved: false,
			wantBare:     "database migrations",
		},
		{
			name:         "resolved topic",
			stored:       ResolvedTopicPrefix + "database migrations",
			wantResolved: true,
			wantBare:     "database migrations",
		},
		{
			name:         "empty name",
			stored:       "",
			wantResolved: false,
			wantBare:     "",
		},
		{
			name:         "prefix alone",
			stored:       ResolvedTopicPrefix,
			wantResolved: true,
			wantBare:     "",
		},
		{
			name:         "check mark without trailing space is not resolved",
			stored:       "✔done",
			wantResolved: false,
			wantBare:     "✔done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, bare := ResolutionAndBareName(tt.stored)
			require.Equal(t, tt.wantResolved, resolved)
			require.Equal(t, tt.wantBare, bare)
		})
	}
}

func TestResolutionAndBareName_RoundTrip(t *testing.T) {
	for _, bare := range []string{"release 1.4", "", "Bug", "general chat"} {
		resolved, got := ResolutionAndBareName(ResolvedTopicPrefix + bare)
		require.True(t, resolved)
		require.Equal(t, bare, got)

		resolved, got = ResolutionAndBareName(bare)
		require.False(t, resolved)
		require.Equal(t, bare, got)
	}
}

func TestRenameFallbackToEmpty(t *testing.T) {
	require.Equal(t, "", RenameFallbackToEmpty(EmptyTopicFallbackName))
	require.Equal(t, "weekly sync", RenameFallbackToEmpty("weekly sync"))
	require.Equal(t, "", RenameFallbackToEmpty(""))
}

func TestRenameLegacyMarkerToEmpty(t *testing.T) {
	require.Equal(t, "", RenameLegacyMarkerToEmpty(LegacyNoTopicName))
	require.Equal(t, "weekly sync", RenameLegacyMarkerToEmpty("weekly sync"))
}

func TestRenameEmptyToFallback(t *testing.T) {
	tests := []struct {
		name             string
		topicName        string
		isChannelMessage bool
		allowEmpty       bool
		want             string
	}{
		{
			name:             "empty channel topic disallowed",
			topicName:        "",
			isChannelMessage: true,
			allowEmpty:       false,
			want:             EmptyTopicFallbackName,
		},
		{
			name:             "empty channel topic allowed",
			topicName:        "",
			isChannelMessage: true,
			allowEmpty:       true,
			want:             "",
		},
		{
			name:             "empty direct message unchanged",
			topicName:        "",
			isChannelMessage: false,
			allowEmpty:       false,
			want:             "",
		},
		{
			name:             "named topic unchanged",
			topicName:        "standup",
			isChannelMessage: true,
			allowEmpty:       false,
			want:             "standup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenameEmptyToFallback(tt.topicName, tt.isChannelMessage, tt.allowEmpty)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFromMessageInfo(t *testing.T) {
	name, err := FromMessageInfo(map[string]any{"topic": "deploys"})
	require.NoError(t, err)
	require.Equal(t, "deploys", name)

	name, err = FromMessageInfo(map[string]any{"subject": "deploys"})
	require.NoError(t, err)
	require.Equal(t, "deploys", name)

	// "topic" wins when both are present.
	name, err = FromMessageInfo(map[string]any{"topic": "deploys", "subject": "legacy"})
	require.NoError(t, err)
	require.Equal(t, "deploys", name)

	// Empty string is a valid topic, not a missing field.
	name, err = FromMessageInfo(map[string]any{"topic": ""})
	require.NoError(t, err)
	require.Equal(t, "", name)
}

func TestFromMessageInfo_MissingFields(t *testing.T) {
	_, err := FromMessageInfo(map[string]any{"content": "hello"})
	require.ErrorIs(t, err, ErrNoTopicField)

	_, err = FromMessageInfo(map[string]any{})
	require.ErrorIs(t, err, ErrNoTopicField)
}

func TestFromMessageInfo_NonString(t *testing.T) {
	_, err := FromMessageInfo(map[string]any{"topic": 42})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoTopicField)
}

func TestFold(t *testing.T) {
	require.Equal(t, Fold("Weekly Sync"), Fold("WEEKLY SYNC"))
	require.Equal(t, Fold("Ärger"), Fold("ärger"))
	require.Equal(t, Fold("ürgent"), Fold("ÜRGENT"))
	require.NotEqual(t, Fold("Ärger"), Fold("arger"))
}
