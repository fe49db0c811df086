package provider

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/delega/delega/pkg/models"
)

// rosterFile is the on-disk shape of a roster document.
type rosterFile struct {
	Tasks      []models.Task      `yaml:"tasks"`
	Candidates []models.Candidate `yaml:"candidates"`
}

// RosterProvider serves tasks and candidates from a local YAML file and
// reloads it when the file changes on disk. It backs offline and test
// deployments where no backend is reachable.
type RosterProvider struct {
	path string

	mu         sync.RWMutex
	tasks      map[string]models.Task
	candidates []models.Candidate

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRosterProvider loads the roster at path and starts watching it.
// A watcher failure is not fatal: the provider still serves the loaded
// snapshot, it just stops picking up edits.
func NewRosterProvider(path string) (*RosterProvider, error) {
	p := &RosterProvider{
		path: path,
		done: make(chan struct{}),
	}
	if err := p.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[roster] file watcher unavailable: %v", err)
		return p, nil
	}
	// Watch the directory, not the file: editors replace files on save
	// and a file watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		log.Printf("[roster] cannot watch %s: %v", filepath.Dir(path), err)
		return p, nil
	}
	p.watcher = watcher
	go p.watch()

	return p, nil
}

// watch reloads the roster whenever the file is rewritten.
func (p *RosterProvider) watch() {
	for {
		select {
		case <-p.done:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				log.Printf("[roster] reload failed, keeping previous snapshot: %v", err)
			} else {
				log.Printf("[roster] reloaded %s", p.path)
			}
		case <-p.watcher.Errors:
			// Keep watching.
		}
	}
}

// reload parses the roster file and swaps in the new snapshot.
func (p *RosterProvider) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read roster %s: %w", p.path, err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse roster %s: %w", p.path, err)
	}

	tasks := make(map[string]models.Task, len(file.Tasks))
	for _, t := range file.Tasks {
		if t.ID == "" {
			return fmt.Errorf("roster %s: task without id", p.path)
		}
		tasks[t.ID] = t
	}

	p.mu.Lock()
	p.tasks = tasks
	p.candidates = file.Candidates
	p.mu.Unlock()
	return nil
}

// Task implements Provider.
func (p *RosterProvider) Task(ctx context.Context, id string) (models.Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	task, ok := p.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

// Tasks implements Provider.
func (p *RosterProvider) Tasks(ctx context.Context, ids []string) ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := p.Task(ctx, id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Candidates implements Provider. A task with a team id narrows the
// pool to that team.
func (p *RosterProvider) Candidates(ctx context.Context, task models.Task) ([]models.Candidate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if task.TeamID == "" {
		out := make([]models.Candidate, len(p.candidates))
		copy(out, p.candidates)
		return out, nil
	}
	var out []models.Candidate
	for _, c := range p.candidates {
		if c.TeamID == task.TeamID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Snapshot returns copies of every task and candidate currently loaded,
// tasks ordered by id. It backs roster inspection tooling.
func (p *RosterProvider) Snapshot() ([]models.Task, []models.Candidate) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tasks := make([]models.Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	candidates := make([]models.Candidate, len(p.candidates))
	copy(candidates, p.candidates)
	return tasks, candidates
}

// Close stops the file watcher.
func (p *RosterProvider) Close() {
	close(p.done)
	if p.watcher != nil {
		p.watcher.Close()
	}
}
