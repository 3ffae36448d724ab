package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"codeberg.org/opensuse/docbuildd/internal/model"
)

// History is an append-only SQLite archive of finished build instructions,
// kept alongside the live JSON snapshot so past builds remain queryable
// after they age out of the in-memory past collection.
type History struct {
	db *sql.DB
	mu sync.Mutex

	retentionPerTarget int
}

// OpenHistory opens (creating if necessary) the SQLite database at path and
// ensures its schema exists. retentionPerTarget caps how many finished
// records per target are kept; zero disables pruning.
func OpenHistory(path string, retentionPerTarget int) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	h := &History{db: db, retentionPerTarget: retentionPerTarget}
	if err := h.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return h, nil
}

func (h *History) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS instructions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instruction_id TEXT NOT NULL,
		target TEXT NOT NULL,
		product TEXT NOT NULL,
		docset TEXT NOT NULL,
		lang TEXT NOT NULL,
		status TEXT NOT NULL,
		finished_at INTEGER NOT NULL,
		record BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instructions_target ON instructions(target);
	CREATE INDEX IF NOT EXISTS idx_instructions_finished_at ON instructions(finished_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record appends a finished instruction snapshot to the archive and, if
// retention is configured, prunes older rows for the same target beyond the
// configured count.
func (h *History) Record(ctx context.Context, bi *model.BuildInstruction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, err := json.Marshal(bi)
	if err != nil {
		return fmt.Errorf("marshal instruction record: %w", err)
	}

	_, err = h.db.ExecContext(ctx,
		"INSERT INTO instructions (instruction_id, target, product, docset, lang, status, finished_at, record) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		bi.ID, bi.Target, bi.Product, bi.Docset, bi.Language, string(bi.Status), time.Now().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	if h.retentionPerTarget > 0 {
		if err := h.pruneLocked(ctx, bi.Target); err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
	}
	return nil
}

func (h *History) pruneLocked(ctx context.Context, target string) error {
	_, err := h.db.ExecContext(ctx, `
		DELETE FROM instructions
		WHERE target = ? AND id NOT IN (
			SELECT id FROM instructions WHERE target = ? ORDER BY id DESC LIMIT ?
		)`, target, target, h.retentionPerTarget)
	return err
}

// ForTarget returns the most recent archived records for a target, newest
// first, bounded by limit.
func (h *History) ForTarget(ctx context.Context, target string, limit int) ([]*model.BuildInstruction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.QueryContext(ctx,
		"SELECT record FROM instructions WHERE target = ? ORDER BY id DESC LIMIT ?", target, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []*model.BuildInstruction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		var bi model.BuildInstruction
		if err := json.Unmarshal(payload, &bi); err != nil {
			return nil, fmt.Errorf("unmarshal history record: %w", err)
		}
		out = append(out, &bi)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}
