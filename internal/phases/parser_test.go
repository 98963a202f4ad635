package phases

import (
	"reflect"
	"testing"
	"time"

	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newestFirst builds a log slice in the backend's wire order (newest first)
// from messages given oldest-first, spaced one second apart.
func newestFirst(t *testing.T, start string, messages ...string) []models.LogEntry {
	t.Helper()
	base, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)

	logs := make([]models.LogEntry, 0, len(messages))
	for i, msg := range messages {
		entry := models.LogEntry{
			ID:      i + 1,
			Level:   models.LogLevelInfo,
			Message: msg,
		}
		entry.CreatedAt.Time = base.Add(time.Duration(i) * time.Second)
		logs = append([]models.LogEntry{entry}, logs...)
	}
	return logs
}

func TestParse_SingleDiscoveryPhase(t *testing.T) {
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Starting discovery phase",
		"Found: Acme Corp",
		"Found: Beta Inc",
		"Discovery complete: 2 companies",
	)

	phases := Parse(logs, models.JobStatusRunning)

	require.Len(t, phases, 1)
	p := phases[0]
	assert.Equal(t, "discovery", p.Key)
	assert.Equal(t, models.PhaseStatusCompleted, p.Status)
	assert.Equal(t, 2, p.CompaniesFound)
	require.NotNil(t, p.EndTime)
	require.NotNil(t, p.DurationSeconds)
	assert.Equal(t, 3.0, *p.DurationSeconds)
}

func TestParse_OpenPhaseStaysRunning(t *testing.T) {
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Starting discovery phase",
		"Searching ThomasNet...",
	)

	phases := Parse(logs, models.JobStatusRunning)

	require.Len(t, phases, 1)
	assert.Equal(t, models.PhaseStatusRunning, phases[0].Status)
	assert.Nil(t, phases[0].EndTime)
	assert.Nil(t, phases[0].DurationSeconds)
	assert.Equal(t, 0, ActiveIndex(phases, models.JobStatusRunning))
}

func TestParse_TerminalStatusForcesClosure(t *testing.T) {
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Starting discovery phase",
		"Found: Acme Corp",
	)

	for _, status := range []models.JobStatus{
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		phases := Parse(logs, status)
		require.Len(t, phases, 1)
		assert.Equal(t, models.PhaseStatusCompleted, phases[0].Status, "status %s", status)
		// Closure without a closing log must not fabricate timing.
		assert.Nil(t, phases[0].EndTime)
		assert.Nil(t, phases[0].DurationSeconds)
	}
}

func TestParse_NewTriggerClosesPreviousPhase(t *testing.T) {
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Starting discovery phase",
		"Found: Acme Corp",
		"Starting data enrichment (revenue, employees, location)",
		"Enriched Acme Corp: rev=$5M",
		"Data enrichment complete: 1/1 companies enriched",
		"Starting contact enrichment phase",
		"Enrichment complete: 3 contacts",
		"Starting email pattern matching",
		"Email patterns: generated 12 guesses",
	)

	phases := Parse(logs, models.JobStatusRunning)

	require.Len(t, phases, 4)
	keys := []string{}
	for _, p := range phases {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"discovery", "data_enrichment", "contact_enrichment", "email_patterns"}, keys)

	for i, p := range phases {
		assert.Equal(t, models.PhaseStatusCompleted, p.Status, "phase %d", i)
		require.NotNil(t, p.EndTime, "phase %d", i)
		assert.False(t, p.EndTime.Before(p.StartTime), "phase %d endTime regressed", i)
		if i > 0 {
			assert.False(t, p.StartTime.Before(phases[i-1].StartTime), "phase order not chronological")
		}
	}

	// The first phase was closed by the next trigger, not a complete line.
	assert.Equal(t, phases[1].StartTime, *phases[0].EndTime)
}

func TestParse_DetailSelection(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     string
	}{
		{
			name: "sources line retained",
			messages: []string{
				"Starting discovery phase",
				"Sources: google, thomasnet",
			},
			want: "Sources: google, thomasnet",
		},
		{
			name: "new companies beats earlier sources",
			messages: []string{
				"Starting discovery phase",
				"Sources: google, thomasnet",
				"ThomasNet: found 5 new companies",
			},
			want: "ThomasNet: found 5 new companies",
		},
		{
			name: "later sources does not displace new companies",
			messages: []string{
				"Starting discovery phase",
				"ThomasNet: found 5 new companies",
				"Sources: google, thomasnet",
			},
			want: "ThomasNet: found 5 new companies",
		},
		{
			name: "last new companies wins",
			messages: []string{
				"Starting discovery phase",
				"ThomasNet: found 5 new companies",
				"Kompass: found 2 new companies",
			},
			want: "Kompass: found 2 new companies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := newestFirst(t, "2025-03-01T10:00:00Z", tt.messages...)
			phases := Parse(logs, models.JobStatusRunning)
			require.Len(t, phases, 1)
			assert.Equal(t, tt.want, phases[0].SummaryDetail)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Job started",
		"Starting discovery phase",
		"Found: Acme Corp",
		"Sources: google",
		"Discovery complete: 1 companies from 4 URLs across 1 industries",
		"Starting contact enrichment phase",
		"Enriching Acme Corp (need: email, phone)",
	)

	first := Parse(logs, models.JobStatusRunning)
	second := Parse(logs, models.JobStatusRunning)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestParse_EmptyAndUntriggeredLogs(t *testing.T) {
	assert.Empty(t, Parse(nil, models.JobStatusRunning))
	assert.Empty(t, Parse([]models.LogEntry{}, models.JobStatusPending))

	// Chatter before any phase trigger produces no phases.
	logs := newestFirst(t, "2025-03-01T10:00:00Z",
		"Job started",
		"Found: Acme Corp",
	)
	assert.Empty(t, Parse(logs, models.JobStatusRunning))
}

func TestActiveIndex(t *testing.T) {
	running := []models.Phase{
		{Key: "discovery", Status: models.PhaseStatusCompleted},
		{Key: "contact_enrichment", Status: models.PhaseStatusRunning},
	}

	assert.Equal(t, 1, ActiveIndex(running, models.JobStatusRunning))
	assert.Equal(t, -1, ActiveIndex(running, models.JobStatusPaused))
	assert.Equal(t, -1, ActiveIndex(running, models.JobStatusCompleted))

	closed := []models.Phase{{Key: "discovery", Status: models.PhaseStatusCompleted}}
	assert.Equal(t, -1, ActiveIndex(closed, models.JobStatusRunning))
	assert.Equal(t, -1, ActiveIndex(nil, models.JobStatusRunning))
}
