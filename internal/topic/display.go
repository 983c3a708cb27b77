package topic

import (
	"golang.org/x/text/language"
)

// Catalog resolves the localized display label for the empty topic.
// It is passed explicitly rather than read from ambient request state,
// so callers control which translation table is in effect.
type Catalog struct {
	tags     []language.Tag
	labels   map[language.Tag]string
	matcher  language.Matcher
	fallback string
}

// NewCatalog builds a catalog from per-language labels for the empty
// topic. The untranslated EmptyTopicFallbackName is used when no
// language matches.
func NewCatalog(labels map[language.Tag]string) *Catalog {
	tags := make([]language.Tag, 0, len(labels)+1)
	// English first so it wins for unmatchable locales.
	tags = append(tags, language.English)
	for tag := range labels {
		if tag != language.English {
			tags = append(tags, tag)
		}
	}
	return &Catalog{
		tags:     tags,
		labels:   labels,
		matcher:  language.NewMatcher(tags),
		fallback: EmptyTopicFallbackName,
	}
}

// DefaultCatalog returns the built-in translations for the empty-topic
// label.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[language.Tag]string{
		language.English:             EmptyTopicFallbackName,
		language.German:              "allgemeiner Chat",
		language.Spanish:             "chat general",
		language.French:              "discussion générale",
		language.Japanese:            "一般チャット",
		language.SimplifiedChinese:   "常规聊天",
		language.BrazilianPortuguese: "chat geral",
		language.Russian:             "общий чат",
	})
}

// Label returns the empty-topic label for the given locale, falling
// back to the untranslated label for unknown locales.
func (c *Catalog) Label(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return c.fallback
	}
	matched, _, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return c.fallback
	}
	// Matcher may return a more specific tag than the catalog key;
	// walk up to the base form we stored.
	for t := matched; ; t = t.Parent() {
		if label, ok := c.labels[t]; ok {
			return label
		}
		if t == language.Und {
			break
		}
	}
	return c.fallback
}

// DisplayName returns the user-facing name for a topic: the localized
// empty-topic label when the stored name is empty, the stored name
// otherwise.
func DisplayName(topicName string, catalog *Catalog, locale string) string {
	if topicName == "" {
		return catalog.Label(locale)
	}
	return topicName
}
