package models

import (
	"fmt"
	"strings"
	"time"
)

// Log levels emitted by the backend scraper.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// LogEntry is one immutable line of a job's log stream, delivered
// newest-first by the backend. Message semantics are inferred from
// substring patterns; this is a deliberate soft contract.
type LogEntry struct {
	ID        int          `json:"id"`
	Level     string       `json:"level"`
	Message   string       `json:"message"`
	URL       *string      `json:"url,omitempty"`
	CreatedAt UpstreamTime `json:"created_at"`
}

// UpstreamTime decodes backend timestamps. The backend stores UTC but its
// wire format sometimes omits the zone designator; a zoneless timestamp
// must be read as UTC, not local time, before any duration arithmetic.
type UpstreamTime struct {
	time.Time
}

// zonelessLayouts cover the naive ISO-8601 forms the backend emits.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseUpstreamTime parses a backend timestamp string, treating any value
// without an explicit zone as UTC.
func ParseUpstreamTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *UpstreamTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseUpstreamTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t UpstreamTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.UTC().Format(time.RFC3339Nano) + `"`), nil
}
