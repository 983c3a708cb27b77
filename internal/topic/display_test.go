package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestDisplayName(t *testing.T) {
	catalog := DefaultCatalog()

	require.Equal(t, "standup", DisplayName("standup", catalog, "en"))
	require.Equal(t, EmptyTopicFallbackName, DisplayName("", catalog, "en"))
	require.Equal(t, "chat general", DisplayName("", catalog, "es"))
	require.Equal(t, "allgemeiner Chat", DisplayName("", catalog, "de"))
}

func TestCatalog_Label(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		locale string
		want   string
	}{
		{"en", EmptyTopicFallbackName},
		{"en-US", EmptyTopicFallbackName},
		{"de", "allgemeiner Chat"},
		{"de-AT", "allgemeiner Chat"},
		{"ja", "一般チャット"},
		{"pt-BR", "chat geral"},
		// Unknown and malformed locales fall back to the untranslated label.
		{"xx-nonsense", EmptyTopicFallbackName},
		{"", EmptyTopicFallbackName},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			require.Equal(t, tt.want, catalog.Label(tt.locale))
		})
	}
}

func TestNewCatalog_CustomLabels(t *testing.T) {
	catalog := NewCatalog(map[language.Tag]string{
		language.English: "lobby",
		language.French:  "salon",
	})

	require.Equal(t, "lobby", catalog.Label("en"))
	require.Equal(t, "salon", catalog.Label("fr"))
	require.Equal(t, "lobby", DisplayName("", catalog, "en-GB"))
}
