package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/delega/delega/pkg/models"
)

// HTTPProvider resolves tasks and candidates from the project
// management backend's REST API.
type HTTPProvider struct {
	base   string
	client *http.Client
}

// NewHTTPProvider builds a provider for the backend at baseURL.
// A zero timeout defaults to 30 seconds.
func NewHTTPProvider(baseURL string, timeout time.Duration) (*HTTPProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		base:   u.String(),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Task implements Provider.
func (p *HTTPProvider) Task(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := p.getJSON(ctx, "/api/tasks/"+url.PathEscape(id), &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// Tasks implements Provider.
func (p *HTTPProvider) Tasks(ctx context.Context, ids []string) ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := p.Task(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Candidates implements Provider. The backend scopes the pool to the
// task's team server-side.
func (p *HTTPProvider) Candidates(ctx context.Context, task models.Task) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := p.getJSON(ctx, "/api/tasks/"+url.PathEscape(task.ID)+"/candidates", &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// getJSON performs one GET and decodes the body. 404 maps to
// ErrNotFound; any other non-200 status is an error carrying the
// status code.
func (p *HTTPProvider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
