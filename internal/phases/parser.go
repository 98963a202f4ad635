// Package phases folds a job's unstructured log stream into an ordered
// list of discrete pipeline phases with start/end times and durations.
package phases

import (
	"strings"
	"time"

	"github.com/rowanvale/leadwatch/internal/models"
)

// detail-line priority inside a phase: a "found ... new companies" message
// outranks a "Sources:" message; within a category the last match wins.
const (
	detailNone = iota
	detailSources
	detailNewCompanies
)

// Parse folds a newest-first log sequence into phases, in the chronological
// order their triggers were matched. The result is a pure function of the
// inputs: parsing the same logs and status twice yields identical output.
func Parse(logs []models.LogEntry, jobStatus models.JobStatus) []models.Phase {
	phases := []models.Phase{}

	// The feed arrives newest-first; reverse into a forward timeline.
	ordered := make([]models.LogEntry, len(logs))
	for i, entry := range logs {
		ordered[len(logs)-1-i] = entry
	}

	var open *models.Phase
	detailRank := detailNone

	closeOpen := func(at time.Time) {
		if open == nil {
			return
		}
		end := at
		open.EndTime = &end
		seconds := end.Sub(open.StartTime).Seconds()
		open.DurationSeconds = &seconds
		if open.Status == models.PhaseStatusRunning {
			open.Status = models.PhaseStatusCompleted
		}
		open = nil
	}

	for i := range ordered {
		entry := &ordered[i]
		msg := entry.Message
		ts := entry.CreatedAt.Time

		if catalogEntry := matchCatalog(msg); catalogEntry != nil {
			closeOpen(ts)
			phases = append(phases, models.Phase{
				Key:       catalogEntry.Key,
				Label:     catalogEntry.Label,
				StartTime: ts,
				Status:    models.PhaseStatusRunning,
			})
			open = &phases[len(phases)-1]
			detailRank = detailNone
			continue
		}

		if open == nil {
			// Untriggered chatter before the first phase; still visible in
			// the raw activity feed, ignored here.
			continue
		}

		switch {
		case strings.HasPrefix(msg, foundPrefix):
			open.CompaniesFound++

		case isCloseMarker(msg):
			closeOpen(ts)

		case strings.Contains(msg, "found") && strings.Contains(msg, "new companies"):
			open.SummaryDetail = msg
			detailRank = detailNewCompanies

		case strings.HasPrefix(msg, sourcesPrefix):
			if detailRank <= detailSources {
				open.SummaryDetail = msg
				detailRank = detailSources
			}
		}
	}

	// A job that reached a terminal status cannot still be mid-phase. Close
	// the trailing phase without inventing an end time or duration.
	if jobStatus.IsTerminal() && len(phases) > 0 {
		last := &phases[len(phases)-1]
		if last.Status == models.PhaseStatusRunning {
			last.Status = models.PhaseStatusCompleted
		}
	}

	return phases
}

// ActiveIndex returns the index of the phase to render as active, or -1.
// Only the last phase qualifies, only while the job is running, and only
// while the phase itself is still running; its displayed duration is then
// computed live as now - StartTime rather than a stored value.
func ActiveIndex(phases []models.Phase, jobStatus models.JobStatus) int {
	if jobStatus != models.JobStatusRunning || len(phases) == 0 {
		return -1
	}
	last := len(phases) - 1
	if phases[last].Status != models.PhaseStatusRunning {
		return -1
	}
	return last
}

func matchCatalog(message string) *CatalogEntry {
	for i := range Catalog {
		if strings.Contains(message, Catalog[i].Trigger) {
			return &Catalog[i]
		}
	}
	return nil
}

func isCloseMarker(message string) bool {
	for _, marker := range closeMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
