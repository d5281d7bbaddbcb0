package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	db *sql.DB
}

// NewSQLiteService opens (or creates) the database at dbPath. ":memory:"
// keeps the ledger in process memory only.
func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps one shared :memory: database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordHand(ctx context.Context, rec HandRecord) error {
	if strings.TrimSpace(rec.HandID) == "" {
		return fmt.Errorf("record hand: empty hand id")
	}
	summary, err := json.Marshal(summaryJSON{Winners: rec.Winners, Seats: rec.Seats})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO hand_history (
    hand_id, hand_number, started_at_ms, ended_at_ms, showdown, pot, board, summary_json, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (hand_id) DO NOTHING
`, rec.HandID, int64(rec.HandNumber), rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(),
		boolToInt(rec.Showdown), rec.Pot, strings.Join(rec.Board, " "), string(summary),
		time.Now().UTC().UnixMilli())
	if err != nil {
		log.Printf("[Ledger] record hand failed: hand=%s err=%v", rec.HandID, err)
	}
	return err
}

func (s *SQLiteService) ListRecent(ctx context.Context, limit int) ([]HandRecord, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
SELECT hand_id, hand_number, started_at_ms, ended_at_ms, showdown, pot, board, summary_json
FROM hand_history
ORDER BY ended_at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HandRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (s *SQLiteService) GetHand(ctx context.Context, handID string) (HandRecord, error) {
	if strings.TrimSpace(handID) == "" {
		return HandRecord{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
SELECT hand_id, hand_number, started_at_ms, ended_at_ms, showdown, pot, board, summary_json
FROM hand_history
WHERE hand_id = ?
`, handID)
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HandRecord{}, ErrNotFound
	}
	return rec, err
}

func scanSQLiteRecord(row scanner) (HandRecord, error) {
	var (
		rec                HandRecord
		handNumber         int64
		startedMs, endedMs int64
		showdown           int
		board              string
		summary            string
	)
	if err := row.Scan(&rec.HandID, &handNumber, &startedMs, &endedMs, &showdown, &rec.Pot, &board, &summary); err != nil {
		return HandRecord{}, err
	}
	rec.HandNumber = uint64(handNumber)
	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	rec.EndedAt = time.UnixMilli(endedMs).UTC()
	rec.Showdown = showdown != 0
	return finishRecord(rec, board, []byte(summary)), nil
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS hand_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hand_id TEXT NOT NULL UNIQUE,
    hand_number INTEGER NOT NULL,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    showdown INTEGER NOT NULL DEFAULT 0,
    pot INTEGER NOT NULL,
    board TEXT NOT NULL DEFAULT '',
    summary_json TEXT NOT NULL DEFAULT '{}',
    created_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_hand_history_recent ON hand_history(ended_at_ms DESC, id DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
