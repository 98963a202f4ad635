// Package upstream is the read/dispatch client for the scraper backend
// that owns jobs and their log streams.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/rowanvale/leadwatch/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// Client calls the backend job API. All methods honor the context and are
// throttled by a shared rate limiter so a fast poll cadence cannot hammer
// the backend.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

func NewClient(cfg *common.UpstreamConfig, logger arbor.ILogger) *Client {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.TimeoutDuration()},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// GetJob fetches the current job snapshot.
func (c *Client) GetJob(ctx context.Context, jobID int) (*models.Job, error) {
	var job models.Job
	url := fmt.Sprintf("%s/api/jobs/%d", c.baseURL, jobID)
	if err := c.getJSON(ctx, url, &job); err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}
	return &job, nil
}

// GetLogs fetches up to limit log entries for the job, newest-first.
func (c *Client) GetLogs(ctx context.Context, jobID, limit int) ([]models.LogEntry, error) {
	var logs []models.LogEntry
	url := fmt.Sprintf("%s/api/jobs/%d/logs?limit=%d", c.baseURL, jobID, limit)
	if err := c.getJSON(ctx, url, &logs); err != nil {
		return nil, fmt.Errorf("get logs for job %d: %w", jobID, err)
	}
	return logs, nil
}

// Action posts a lifecycle action. Only success or failure is observed;
// the response payload carries no contract beyond that.
func (c *Client) Action(ctx context.Context, jobID int, action string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/jobs/%d/%s", c.baseURL, jobID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build action request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s for job %d: %w", action, jobID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("action %s for job %d rejected: status %d", action, jobID, resp.StatusCode)
	}

	c.logger.Debug().
		Int("job_id", jobID).
		Str("action", action).
		Msg("Upstream action accepted")
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
