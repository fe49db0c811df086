package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/delega/delega/pkg/models"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	if err := l.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return l
}

func decisionFor(task string, at time.Time) *models.DecisionRecord {
	return &models.DecisionRecord{
		DecisionID:       "DEC-" + task,
		TaskID:           task,
		TaskTitle:        "some work",
		AssignedUserID:   "USR-001",
		AssignedUserName: "Alice",
		Confidence:       0.8,
		ReasoningTrace:   []string{"Reasoning: ranked", "Decision: selected"},
		Timestamp:        at,
	}
}

func TestAppendAndQueryRoundTrip(t *testing.T) {
	l := openTestLog(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	seq, err := l.AppendDecision(decisionFor("TASK-001", now))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seq != 1 {
		t.Errorf("first seq = %d, want 1", seq)
	}

	entries, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}

	e := entries[0]
	if e.Type != EntryDecision || e.RefID != "DEC-TASK-001" {
		t.Errorf("entry = %s %s", e.Type, e.RefID)
	}
	if len(e.TaskIDs) != 1 || e.TaskIDs[0] != "TASK-001" {
		t.Errorf("task ids = %v", e.TaskIDs)
	}
	if !e.RecordedAt.Equal(now) {
		t.Errorf("recorded at %v, want %v", e.RecordedAt, now)
	}

	var rec models.DecisionRecord
	if err := json.Unmarshal(e.Payload, &rec); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if rec.AssignedUserID != "USR-001" || rec.Confidence != 0.8 {
		t.Errorf("payload round trip lost data: %+v", rec)
	}
}

func TestQueryPreservesInsertionOrder(t *testing.T) {
	l := openTestLog(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, task := range []string{"TASK-A", "TASK-B", "TASK-C"} {
		if _, err := l.AppendDecision(decisionFor(task, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %s: %v", task, err)
		}
	}

	entries, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	for i, want := range []int64{1, 2, 3} {
		if entries[i].Seq != want {
			t.Errorf("entry %d seq = %d, want %d", i, entries[i].Seq, want)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	l := openTestLog(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if _, err := l.AppendDecision(decisionFor("TASK-A", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AppendDecision(decisionFor("TASK-B", base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	res := &models.ResolutionRecord{
		ResolutionID: "RES-1",
		TaskIDs:      []string{"TASK-A", "TASK-B"},
		Timestamp:    base.Add(2 * time.Hour),
	}
	if _, err := l.AppendResolution(res); err != nil {
		t.Fatal(err)
	}

	t.Run("by task", func(t *testing.T) {
		entries, err := l.Query(Filter{TaskID: "TASK-A"})
		if err != nil {
			t.Fatal(err)
		}
		// The decision for TASK-A and the resolution that covered it.
		if len(entries) != 2 {
			t.Fatalf("entries = %d", len(entries))
		}
		if entries[0].Type != EntryDecision || entries[1].Type != EntryResolution {
			t.Errorf("types = %s, %s", entries[0].Type, entries[1].Type)
		}
	})

	t.Run("by type", func(t *testing.T) {
		entries, err := l.Query(Filter{Type: EntryResolution})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].RefID != "RES-1" {
			t.Fatalf("entries = %+v", entries)
		}
		if len(entries[0].TaskIDs) != 2 {
			t.Errorf("resolution task ids = %v", entries[0].TaskIDs)
		}
	})

	t.Run("by time range", func(t *testing.T) {
		entries, err := l.Query(Filter{Since: base.Add(30 * time.Minute), Until: base.Add(90 * time.Minute)})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].TaskIDs[0] != "TASK-B" {
			t.Fatalf("entries = %+v", entries)
		}
	})
}

func TestConcurrentAppendsKeepSequenceIntact(t *testing.T) {
	l := openTestLog(t)
	const writers = 16

	seqs := make(chan int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := l.AppendDecision(decisionFor(fmt.Sprintf("TASK-%03d", i), time.Now().UTC()))
			if err != nil {
				t.Errorf("append %d: %v", i, err)
				return
			}
			seqs <- seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool, writers)
	for seq := range seqs {
		if seen[seq] {
			t.Errorf("sequence %d assigned twice", seq)
		}
		seen[seq] = true
	}
	for want := int64(1); want <= writers; want++ {
		if !seen[want] {
			t.Errorf("sequence %d missing, want gap-free 1..%d", want, writers)
		}
	}

	entries, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != writers {
		t.Fatalf("entries = %d, want %d", len(entries), writers)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq <= entries[i-1].Seq {
			t.Errorf("entries out of order: seq %d after %d", entries[i].Seq, entries[i-1].Seq)
		}
		if len(entries[i].TaskIDs) != 1 {
			t.Errorf("entry %d task links = %v, want exactly one", entries[i].Seq, entries[i].TaskIDs)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	l := openTestLog(t)
	if err := l.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if _, err := l.AppendDecision(decisionFor("TASK-A", time.Now())); err != nil {
		t.Fatalf("append after re-migrate: %v", err)
	}
}
