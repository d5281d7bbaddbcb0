package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"holdem-table/card"
	"holdem-table/holdem"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

var ErrNotFound = errors.New("not found")

// Service stores finished hands. Implementations must be safe for
// concurrent use.
type Service interface {
	Close() error
	RecordHand(ctx context.Context, rec HandRecord) error
	ListRecent(ctx context.Context, limit int) ([]HandRecord, error)
	GetHand(ctx context.Context, handID string) (HandRecord, error)
}

type Winner struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type SeatRecord struct {
	Name   string `json:"name"`
	Folded bool   `json:"folded"`
	Stack  int64  `json:"stack"`
	// only filled for hands shown down
	HoleCards []string `json:"hole_cards,omitempty"`
	Hand      string   `json:"hand,omitempty"`
}

type HandRecord struct {
	HandID     string       `json:"hand_id"`
	HandNumber uint64       `json:"hand_number"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	Showdown   bool         `json:"showdown"`
	Board      []string     `json:"board"`
	Pot        int64        `json:"pot"`
	Winners    []Winner     `json:"winners"`
	Seats      []SeatRecord `json:"seats"`
}

type summaryJSON struct {
	Winners []Winner     `json:"winners"`
	Seats   []SeatRecord `json:"seats"`
}

// FromOutcome converts a payout record into a ledger row. An empty handID is
// replaced with a fresh uuid.
func FromOutcome(handID string, out holdem.HandOutcome) HandRecord {
	if strings.TrimSpace(handID) == "" {
		handID = uuid.NewString()
	}
	rec := HandRecord{
		HandID:     handID,
		HandNumber: out.HandNumber,
		StartedAt:  out.StartedAt.UTC(),
		EndedAt:    out.EndedAt.UTC(),
		Showdown:   out.Showdown,
		Board:      cardStrings(out.Board),
		Pot:        out.Pot,
		Winners:    make([]Winner, 0, len(out.Payouts)),
		Seats:      make([]SeatRecord, 0, len(out.Hands)),
	}
	for _, p := range out.Payouts {
		rec.Winners = append(rec.Winners, Winner{Name: p.Name, Amount: p.Amount})
	}
	for _, h := range out.Hands {
		sr := SeatRecord{Name: h.Name, Folded: h.Folded, Stack: h.Stack}
		if out.Showdown && !h.Folded {
			sr.HoleCards = cardStrings(h.HoleCards)
			if h.Result != nil {
				sr.Hand = h.Result.Label
			}
		}
		rec.Seats = append(rec.Seats, sr)
	}
	return rec
}

type noopService struct{}

func (n *noopService) Close() error { return nil }

func (n *noopService) RecordHand(_ context.Context, _ HandRecord) error { return nil }

func (n *noopService) ListRecent(_ context.Context, _ int) ([]HandRecord, error) {
	return []HandRecord{}, nil
}

func (n *noopService) GetHand(_ context.Context, _ string) (HandRecord, error) {
	return HandRecord{}, ErrNotFound
}

func NewNoopService() Service { return &noopService{} }

// NewService opens the ledger backend named by mode. It returns the resolved
// mode for logging.
func NewService(mode, dsn string) (Service, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeMemory:
		return &noopService{}, "memory-noop", nil
	case ModeSQLite, "":
		if strings.TrimSpace(dsn) == "" {
			dsn = ":memory:"
		}
		svc, err := NewSQLiteService(dsn)
		if err != nil {
			return nil, "", err
		}
		return svc, ModeSQLite, nil
	case ModePostgres:
		svc, err := NewPostgresService(dsn)
		if err != nil {
			return nil, "", err
		}
		return svc, ModePostgres, nil
	}
	return nil, "", fmt.Errorf("invalid ledger mode %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
}

type PostgresService struct {
	db *sql.DB
}

func NewPostgresService(dsn string) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS hand_history (
    id BIGSERIAL PRIMARY KEY,
    hand_id TEXT NOT NULL UNIQUE,
    hand_number BIGINT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    showdown BOOLEAN NOT NULL DEFAULT FALSE,
    pot BIGINT NOT NULL,
    board TEXT NOT NULL DEFAULT '',
    summary_json JSONB NOT NULL DEFAULT '{}'::jsonb
)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresService{db: db}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) RecordHand(ctx context.Context, rec HandRecord) error {
	summary, err := json.Marshal(summaryJSON{Winners: rec.Winners, Seats: rec.Seats})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO hand_history (hand_id, hand_number, started_at, ended_at, showdown, pot, board, summary_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
ON CONFLICT (hand_id) DO NOTHING
`, rec.HandID, int64(rec.HandNumber), rec.StartedAt, rec.EndedAt, rec.Showdown, rec.Pot,
		strings.Join(rec.Board, " "), string(summary))
	if err != nil {
		log.Printf("[Ledger] record hand failed: hand=%s err=%v", rec.HandID, err)
	}
	return err
}

func (s *PostgresService) ListRecent(ctx context.Context, limit int) ([]HandRecord, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
SELECT hand_id, hand_number, started_at, ended_at, showdown, pot, board, summary_json
FROM hand_history
ORDER BY ended_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HandRecord, 0, limit)
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (s *PostgresService) GetHand(ctx context.Context, handID string) (HandRecord, error) {
	if strings.TrimSpace(handID) == "" {
		return HandRecord{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
SELECT hand_id, hand_number, started_at, ended_at, showdown, pot, board, summary_json
FROM hand_history
WHERE hand_id = $1
`, handID)
	rec, err := scanPostgresRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HandRecord{}, ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPostgresRecord(row scanner) (HandRecord, error) {
	var (
		rec        HandRecord
		handNumber int64
		board      string
		summaryRaw []byte
	)
	if err := row.Scan(&rec.HandID, &handNumber, &rec.StartedAt, &rec.EndedAt, &rec.Showdown, &rec.Pot, &board, &summaryRaw); err != nil {
		return HandRecord{}, err
	}
	rec.HandNumber = uint64(handNumber)
	rec.StartedAt = rec.StartedAt.UTC()
	rec.EndedAt = rec.EndedAt.UTC()
	return finishRecord(rec, board, summaryRaw), nil
}

func finishRecord(rec HandRecord, board string, summaryRaw []byte) HandRecord {
	rec.Board = splitBoard(board)
	var summary summaryJSON
	if len(summaryRaw) > 0 {
		_ = json.Unmarshal(summaryRaw, &summary)
	}
	rec.Winners = summary.Winners
	rec.Seats = summary.Seats
	if rec.Winners == nil {
		rec.Winners = []Winner{}
	}
	if rec.Seats == nil {
		rec.Seats = []SeatRecord{}
	}
	return rec
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

func splitBoard(board string) []string {
	fields := strings.Fields(board)
	if fields == nil {
		return []string{}
	}
	return fields
}

func cardStrings(cards []card.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}
