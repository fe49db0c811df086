package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/delega/delega/pkg/models"
)

// EntryType distinguishes the record kinds in the trail.
type EntryType string

const (
	EntryDecision   EntryType = "decision"
	EntryResolution EntryType = "resolution"
)

// Entry is one immutable row of the audit trail.
type Entry struct {
	// Seq is the monotonic sequence number assigned at append time.
	Seq int64 `json:"seq"`
	// Type is decision or resolution.
	Type EntryType `json:"type"`
	// RefID is the decision or resolution id the payload carries.
	RefID string `json:"ref_id"`
	// TaskIDs lists the tasks the entry concerns.
	TaskIDs []string `json:"task_ids"`
	// Payload is the full record, serialized as written.
	Payload json.RawMessage `json:"payload"`
	// RecordedAt is the append timestamp.
	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	// TaskID restricts to entries that concern the task.
	TaskID string
	// Type restricts to one entry type.
	Type EntryType
	// Since restricts to entries recorded at or after the instant.
	Since time.Time
	// Until restricts to entries recorded before the instant.
	Until time.Time
}

// AppendDecision appends a completed assignment to the trail and
// returns its sequence number.
func (l *Log) AppendDecision(rec *models.DecisionRecord) (int64, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal decision record: %w", err)
	}
	return l.append(EntryDecision, rec.DecisionID, []string{rec.TaskID}, payload, rec.Timestamp)
}

// AppendResolution appends a conflict resolution to the trail and
// returns its sequence number.
func (l *Log) AppendResolution(rec *models.ResolutionRecord) (int64, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal resolution record: %w", err)
	}
	return l.append(EntryResolution, rec.ResolutionID, rec.TaskIDs, payload, rec.Timestamp)
}

// append inserts the entry and its task links in one transaction so the
// sequence number and the links cannot diverge.
func (l *Log) append(t EntryType, refID string, taskIDs []string, payload []byte, at time.Time) (int64, error) {
	var seq int64
	err := l.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO entries (entry_type, ref_id, payload, recorded_at)
			VALUES (?, ?, ?, ?)
		`, string(t), refID, string(payload), formatTime(at))
		if err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		seq, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get sequence number: %w", err)
		}
		for _, id := range taskIDs {
			if _, err := tx.Exec("INSERT INTO entry_tasks (seq, task_id) VALUES (?, ?)", seq, id); err != nil {
				return fmt.Errorf("link task %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Query returns the matching entries in insertion order.
func (l *Log) Query(f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.TaskID != "" {
		where = append(where, "e.seq IN (SELECT seq FROM entry_tasks WHERE task_id = ?)")
		args = append(args, f.TaskID)
	}
	if f.Type != "" {
		where = append(where, "e.entry_type = ?")
		args = append(args, string(f.Type))
	}
	if !f.Since.IsZero() {
		where = append(where, "e.recorded_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "e.recorded_at < ?")
		args = append(args, formatTime(f.Until))
	}

	query := "SELECT e.seq, e.entry_type, e.ref_id, e.payload, e.recorded_at FROM entries e"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.seq ASC"

	rows, err := l.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			payload    string
			recordedAt string
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.RefID, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		e.RecordedAt, _ = parseTime(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	if err := l.loadTaskIDs(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadTaskIDs fills the TaskIDs of each entry.
func (l *Log) loadTaskIDs(entries []Entry) error {
	for i := range entries {
		rows, err := l.query("SELECT task_id FROM entry_tasks WHERE seq = ? ORDER BY rowid", entries[i].Seq)
		if err != nil {
			return fmt.Errorf("load task ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan task id: %w", err)
			}
			entries[i].TaskIDs = append(entries[i].TaskIDs, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate task ids: %w", err)
		}
		rows.Close()
	}
	return nil
}
