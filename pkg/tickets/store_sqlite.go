package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite ticket store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite ticket store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSNForFile builds a DSN with WAL and a busy timeout, so the server can
// write while `supportchat tickets` reads.
func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite ticket store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS support_tickets (
		  seq INTEGER PRIMARY KEY AUTOINCREMENT,
		  id TEXT NOT NULL UNIQUE,
		  intent TEXT NOT NULL,
		  base_intent TEXT NOT NULL,
		  slots_json TEXT NOT NULL,
		  created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS support_tickets_by_base_intent
		  ON support_tickets(base_intent, seq);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite ticket store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, t Ticket) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite ticket store: db is nil")
	}
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("sqlite ticket store: ticket id is empty")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	slots := t.Slots
	if slots == nil {
		slots = map[string]string{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return errors.Wrap(err, "sqlite ticket store: marshal slots")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO support_tickets (id, intent, base_intent, slots_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.Intent, t.BaseIntent(), string(slotsJSON), t.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite ticket store: insert")
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, intent string, limit int) ([]Ticket, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite ticket store: db is nil")
	}
	query := `SELECT id, intent, slots_json, created_at_ms FROM support_tickets`
	args := []any{}
	if intent != "" {
		query += ` WHERE base_intent = ?`
		args = append(args, BaseIntent(intent))
	}
	query += ` ORDER BY seq ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite ticket store: query")
	}
	defer func() { _ = rows.Close() }()

	out := []Ticket{}
	for rows.Next() {
		var (
			t         Ticket
			slotsJSON string
			createdMs int64
		)
		if err := rows.Scan(&t.ID, &t.Intent, &slotsJSON, &createdMs); err != nil {
			return nil, errors.Wrap(err, "sqlite ticket store: scan")
		}
		if err := json.Unmarshal([]byte(slotsJSON), &t.Slots); err != nil {
			return nil, errors.Wrapf(err, "sqlite ticket store: decode slots of %s", t.ID)
		}
		t.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite ticket store: rows")
	}
	return out, nil
}
