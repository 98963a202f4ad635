// Package activity classifies individual log entries for the rolling
// activity feed and condenses well-known message shapes for display.
package activity

import (
	"html"
	"strings"

	"github.com/rowanvale/leadwatch/internal/models"
)

// Category identifies the semantic kind of a feed entry.
type Category string

const (
	CategoryFound    Category = "found"
	CategoryEnriched Category = "enriched"
	CategoryProgress Category = "progress"
	CategorySearch   Category = "search"
	CategoryDone     Category = "done"
	CategoryWarning  Category = "warning"
	CategoryError    Category = "error"
	CategorySettings Category = "settings"
	CategoryInfo     Category = "info"
)

// Entry is a classified, display-ready log entry.
type Entry struct {
	Category  Category            `json:"category"`
	Icon      string              `json:"icon"`
	CSSClass  string              `json:"css_class"`
	Message   string              `json:"message"` // escaped, possibly condensed
	Level     string              `json:"level"`
	URL       *string             `json:"url,omitempty"`
	CreatedAt models.UpstreamTime `json:"created_at"`
}

type presentation struct {
	icon     string
	cssClass string
}

var presentations = map[Category]presentation{
	CategoryFound:    {"🏢", "log-found"},
	CategoryEnriched: {"✨", "log-enriched"},
	CategoryProgress: {"⏳", "log-progress"},
	CategorySearch:   {"🔍", "log-search"},
	CategoryDone:     {"✅", "log-done"},
	CategoryWarning:  {"⚠️", "log-warning"},
	CategoryError:    {"❌", "log-error"},
	CategorySettings: {"⚙️", "log-settings"},
	CategoryInfo:     {"ℹ️", "log-info"},
}

// Classify maps a single log entry to its display category and condensed
// message. Pure and stateless. Textual rules outrank level-based rules so
// the message's intent wins over log severity.
func Classify(entry models.LogEntry) Entry {
	category := categorize(entry)
	p := presentations[category]

	return Entry{
		Category:  category,
		Icon:      p.icon,
		CSSClass:  p.cssClass,
		Message:   condense(entry.Message),
		Level:     entry.Level,
		URL:       entry.URL,
		CreatedAt: entry.CreatedAt,
	}
}

func categorize(entry models.LogEntry) Category {
	msg := entry.Message
	switch {
	case strings.HasPrefix(msg, "Found: "):
		return CategoryFound
	case strings.HasPrefix(msg, "Enriched "):
		return CategoryEnriched
	case strings.HasPrefix(msg, "Enriching "):
		return CategoryProgress
	case strings.Contains(msg, "Searching"):
		return CategorySearch
	case strings.Contains(msg, "complete") || strings.Contains(msg, "Complete"):
		return CategoryDone
	case entry.Level == models.LogLevelWarning:
		return CategoryWarning
	case entry.Level == models.LogLevelError:
		return CategoryError
	case strings.HasPrefix(msg, "Sources:"):
		return CategorySettings
	default:
		return CategoryInfo
	}
}

// condense rewrites well-known message shapes into short display forms.
// The output format is part of the feed contract; change it and the
// dashboard's rendered text changes with it.
func condense(msg string) string {
	// "Enriching Acme Corp (need: email, phone)" -> "Enriching **Acme Corp** → email, phone"
	if strings.HasPrefix(msg, "Enriching ") && strings.Contains(msg, "(need:") {
		parts := strings.SplitN(msg, "(need:", 2)
		name := strings.TrimSpace(strings.TrimPrefix(parts[0], "Enriching "))
		needs := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), ")"))
		return "Enriching **" + html.EscapeString(name) + "** → " + html.EscapeString(needs)
	}

	// "Enriched Acme Corp: rev=$5M, emp=120" -> "Enriched **Acme Corp** → rev=$5M, emp=120"
	if strings.HasPrefix(msg, "Enriched ") {
		if idx := strings.Index(msg, ": "); idx > 0 {
			name := strings.TrimPrefix(msg[:idx], "Enriched ")
			return "Enriched **" + html.EscapeString(name) + "** → " + html.EscapeString(msg[idx+2:])
		}
	}

	// "Found: Acme Corp (acme.com)" -> "**Acme Corp (acme.com)**"
	if strings.HasPrefix(msg, "Found: ") {
		return "**" + html.EscapeString(strings.TrimPrefix(msg, "Found: ")) + "**"
	}

	return html.EscapeString(msg)
}

// Recent returns the most recent limit entries of a newest-first feed,
// classified for display. The whole feed is recomputed from the latest
// fetch each poll, so no reclassification of older entries is needed.
func Recent(logs []models.LogEntry, limit int) []Entry {
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	entries := make([]Entry, 0, len(logs))
	for _, entry := range logs {
		entries = append(entries, Classify(entry))
	}
	return entries
}
