package infra

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ezshare-gateway/frontdoor/domain"

	"github.com/ubuntu/decorate"

	_ "github.com/mattn/go-sqlite3" // driver sqlite3
)

// SQLiteStatsStore grava cada decisão de admissão como uma linha.
type SQLiteStatsStore struct {
	db *sql.DB
}

// NewSQLiteStatsStore abre o banco em path e cria a tabela se preciso.
func NewSQLiteStatsStore(path string) (s *SQLiteStatsStore, err error) {
	defer decorate.OnError(&err, "could not open sqlite stats store %q", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite3 não gosta de escritas concorrentes.
	db.SetMaxOpenConns(1)

	s = &SQLiteStatsStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStatsStore) init() error {
	const createTable = `
	CREATE TABLE IF NOT EXISTS admissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at DATETIME NOT NULL,
		address TEXT NOT NULL,
		allowed INTEGER NOT NULL,
		conn_index INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS admissions_address ON admissions(address);`

	if _, err := s.db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create admissions table: %w", err)
	}
	slog.Debug("SQLite admissions table ready")
	return nil
}

func (s *SQLiteStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	const insert = `INSERT INTO admissions(at, address, allowed, conn_index) VALUES(?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insert, at.UTC(), string(ev.Address), ev.Allowed, ev.Index); err != nil {
		return fmt.Errorf("failed to insert admission event: %w", err)
	}
	return nil
}

// Totals soma as decisões gravadas, para um endereço ou para todos se addr == "".
func (s *SQLiteStatsStore) Totals(ctx context.Context, addr domain.Address) (Counters, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN allowed THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN allowed THEN 0 ELSE 1 END), 0)
		FROM admissions`
	var args []any
	if addr != "" {
		query += ` WHERE address = ?`
		args = append(args, string(addr))
	}

	var c Counters
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&c.Admitted, &c.Rejected); err != nil {
		return Counters{}, fmt.Errorf("failed to sum admission events: %w", err)
	}
	return c, nil
}

func (s *SQLiteStatsStore) Close() error {
	return s.db.Close()
}
