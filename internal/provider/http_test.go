package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/delega/delega/pkg/models"
)

func backendStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/TASK-001", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Task{
			ID:             "TASK-001",
			Title:          "Fix login bug",
			Difficulty:     models.DifficultyHigh,
			RequiredSkills: []string{"go", "security"},
		})
	})
	mux.HandleFunc("/api/tasks/TASK-001/candidates", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Candidate{
			{ID: "USR-001", Name: "Alice", Workload: 40, Availability: true},
		})
	})
	mux.HandleFunc("/api/tasks/TASK-BROKEN", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProviderTask(t *testing.T) {
	srv := backendStub(t)
	p, err := NewHTTPProvider(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	task, err := p.Task(context.Background(), "TASK-001")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if task.Title != "Fix login bug" || task.Difficulty != models.DifficultyHigh {
		t.Errorf("task = %+v", task)
	}
}

func TestHTTPProviderCandidates(t *testing.T) {
	srv := backendStub(t)
	p, err := NewHTTPProvider(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	candidates, err := p.Candidates(context.Background(), models.Task{ID: "TASK-001"})
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Alice" {
		t.Errorf("candidates = %+v", candidates)
	}
}

func TestHTTPProviderNotFound(t *testing.T) {
	srv := backendStub(t)
	p, err := NewHTTPProvider(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = p.Task(context.Background(), "TASK-404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("404 should map to ErrNotFound, got %v", err)
	}
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := backendStub(t)
	p, err := NewHTTPProvider(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = p.Task(context.Background(), "TASK-BROKEN")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("500 should be a distinct error, got %v", err)
	}
}

func TestHTTPProviderRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPProvider("not a url", time.Second); err == nil {
		t.Fatal("expected an error for an invalid base url")
	}
	if _, err := NewHTTPProvider("", time.Second); err == nil {
		t.Fatal("expected an error for an empty base url")
	}
}
