package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&common.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: "2s",
	}, arbor.NewLogger())
}

func TestGetJob_ZonelessTimestampsReadAsUTC(t *testing.T) {
	// The backend emits naive ISO timestamps; they are UTC on the wire.
	body := `{
		"id": 12, "name": "Texas manufacturers", "status": "running",
		"job_type": "full", "total_urls": 40, "processed_urls": 10,
		"companies_found": 6, "contacts_found": 2, "errors_count": 1,
		"progress": 25.0,
		"started_at": "2025-03-01T10:00:00",
		"completed_at": null,
		"created_at": "2025-03-01T09:59:30.123456"
	}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/12", r.URL.Path)
		fmt.Fprint(w, body)
	}))

	job, err := client.GetJob(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, job.StartedAt.Time.Equal(want), "got %v", job.StartedAt.Time)
	assert.Nil(t, job.CompletedAt)
}

func TestGetLogs_NewestFirstPreserved(t *testing.T) {
	body := `[
		{"id": 3, "level": "info", "message": "Found: Acme Corp", "url": "https://acme.com", "created_at": "2025-03-01T10:00:02"},
		{"id": 2, "level": "info", "message": "Searching ThomasNet...", "url": null, "created_at": "2025-03-01T10:00:01"},
		{"id": 1, "level": "info", "message": "Starting discovery phase", "url": null, "created_at": "2025-03-01T10:00:00Z"}
	]`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/12/logs", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, body)
	}))

	logs, err := client.GetLogs(context.Background(), 12, 50)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, 3, logs[0].ID)
	assert.Equal(t, 1, logs[2].ID)
	require.NotNil(t, logs[0].URL)
	assert.Equal(t, "https://acme.com", *logs[0].URL)

	// Zoneless and Z-suffixed timestamps land on the same timeline.
	assert.True(t, logs[2].CreatedAt.Time.Before(logs[1].CreatedAt.Time))
}

func TestAction_PostsAndChecksStatus(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		fmt.Fprint(w, `{"id": 12, "status": "paused"}`)
	}))

	err := client.Action(context.Background(), 12, "pause")
	require.NoError(t, err)
	assert.Equal(t, "/api/jobs/12/pause", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestAction_RejectionIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Can only pause running jobs", http.StatusBadRequest)
	}))

	err := client.Action(context.Background(), 12, "pause")
	assert.Error(t, err)
}

func TestGetJob_UpstreamErrorWrapped(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetJob(context.Background(), 12)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
