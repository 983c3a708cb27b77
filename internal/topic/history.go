package topic

import (
	"sort"

	"github.com/quillchat/quill/internal/models"
)

// HistoryRow is one raw row from a topic-history query: a literal
// (case-sensitive) topic string and the maximum message id among
// messages using that exact string.
type HistoryRow struct {
	Name  string
	MaxID int64
}

// GenerateHistory canonicalizes raw history rows into a display-ready
// topic list. Rows whose names differ only in case collapse into one
// entry keyed by the case-folded name; the literal casing of the row
// with the highest max id wins. Entries come back sorted by max id
// descending, most recently active topic first.
//
// The fold is a full in-memory materialization. The number of distinct
// topic strings in one conversation is bounded by human usage, so this
// stays small.
func GenerateHistory(rows []HistoryRow, allowEmptyTopicName bool) []models.TopicHistoryEntry {
	// Sort ascending by max id so that later rows overwrite earlier
	// ones and the most recent casing is the one retained.
	sorted := make([]HistoryRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MaxID < sorted[j].MaxID
	})

	canonical := make(map[string]HistoryRow, len(sorted))
	for _, row := range sorted {
		canonical[Fold(row.Name)] = row
	}

	history := make([]models.TopicHistoryEntry, 0, len(canonical))
	for _, row := range canonical {
		name := row.Name
		if name == "" && !allowEmptyTopicName {
			name = EmptyTopicFallbackName
		}
		history = append(history, models.TopicHistoryEntry{
			Name:  name,
			MaxID: row.MaxID,
		})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].MaxID > history[j].MaxID
	})
	return history
}
