// Package state persists the scheduler's instruction snapshot to a JSON file
// on every checkpoint and restores it at startup, plus an append-only SQLite
// archive of finished instructions for historical lookups.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/opensuse/docbuildd/internal/model"
)

// Store persists the current scheduled/active/past instruction snapshot to a
// JSON file, using the same temp-file-then-rename pattern as the rest of the
// server's atomic writes.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store writing to <cacheDir>/<serverName>.json.
func NewStore(cacheDir, serverName string) *Store {
	return &Store{path: filepath.Join(cacheDir, serverName+".json")}
}

// Checkpoint implements scheduler.Checkpointer: it serializes the union of
// scheduled, active, and past instructions and writes it atomically.
func (s *Store) Checkpoint(scheduled, active, past []*model.BuildInstruction) {
	all := make([]*model.BuildInstruction, 0, len(scheduled)+len(active)+len(past))
	all = append(all, scheduled...)
	all = append(all, active...)
	all = append(all, past...)

	if err := s.save(all); err != nil {
		slog.Error("state checkpoint failed", slog.String("error", err.Error()), slog.String("path", s.path))
	}
}

func (s *Store) save(records []*model.BuildInstruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Restored splits a freshly loaded set of records into the scheduled and
// past buckets the scheduler restarts with: any record with a non-empty
// Open or Building list is requeued as scheduled (its in-flight progress is
// lost but the intent to build survives); everything else is past.
type Restored struct {
	Scheduled []*model.BuildInstruction
	Past      []*model.BuildInstruction
}

// Load reads the persisted state file and classifies its records. A missing
// file is not an error — it returns an empty Restored. A malformed file is
// logged as a warning and treated the same as a missing one, per the
// fresh-state-on-corruption rule.
func (s *Store) Load() Restored {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state file unreadable, starting fresh", slog.String("error", err.Error()), slog.String("path", s.path))
		}
		return Restored{}
	}

	var records []*model.BuildInstruction
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("state file corrupt, starting fresh", slog.String("error", err.Error()), slog.String("path", s.path))
		return Restored{}
	}

	var restored Restored
	for _, bi := range records {
		if bi.Deliverables == nil {
			bi.Deliverables = make(map[string]*model.Deliverable)
		}
		if len(bi.Open) > 0 || len(bi.Building) > 0 {
			bi.Status = model.InstructionScheduled
			bi.Open = nil
			bi.Building = nil
			restored.Scheduled = append(restored.Scheduled, bi)
			continue
		}
		restored.Past = append(restored.Past, bi)
	}
	return restored
}
