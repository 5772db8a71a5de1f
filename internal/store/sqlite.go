package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	merchant_name TEXT NOT NULL,
	total_amount  REAL NOT NULL,
	purchased_at  TEXT NOT NULL,
	confidence    REAL NOT NULL,
	items         TEXT NOT NULL DEFAULT '[]',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_owner_file_idx ON receipts (owner_id, file_name, created_at DESC);
`

// sqliteTimeLayout is RFC 3339 with fixed-width nanoseconds so lexical
// order on the column matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the embedded ReceiptStore, used by the CLI when no
// Postgres DSN is configured. Timestamps are stored as UTC strings.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema. Use ":memory:" for a throwaway instance.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps modernc's driver away from SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("store.sqlite.ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts
			(id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.OwnerID.String(), rec.FileName, rec.FilePath, rec.MerchantName,
		rec.TotalAmount, rec.PurchasedAt.UTC().Format(sqliteTimeLayout), rec.Confidence,
		rec.ItemsJSON, rec.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestForFile(ctx context.Context, ownerID uuid.UUID, fileName string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at
		FROM receipts
		WHERE owner_id = ? AND file_name = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID.String(), fileName,
	)

	rec, err := scanSQLiteRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest receipt: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at
		FROM receipts
		WHERE owner_id = ? AND purchased_at >= ? AND purchased_at <= ?
		ORDER BY purchased_at`,
		ownerID.String(), from.UTC().Format(sqliteTimeLayout), to.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context, ownerID uuid.UUID) (Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(AVG(total_amount), 0),
			COALESCE(MIN(purchased_at), ''), COALESCE(MAX(purchased_at), '')
		FROM receipts
		WHERE owner_id = ?`,
		ownerID.String(),
	)

	var st Stats
	var earliest, latest string
	if err := row.Scan(&st.Count, &st.TotalAmount, &st.Average, &earliest, &latest); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if earliest != "" {
		t, err := time.Parse(time.RFC3339Nano, earliest)
		if err != nil {
			return Stats{}, fmt.Errorf("parse earliest timestamp: %w", err)
		}
		st.Earliest = t
	}
	if latest != "" {
		t, err := time.Parse(time.RFC3339Nano, latest)
		if err != nil {
			return Stats{}, fmt.Errorf("parse latest timestamp: %w", err)
		}
		st.Latest = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(purchased_at, 1, 7), COUNT(*)
		FROM receipts
		WHERE owner_id = ?
		GROUP BY 1
		ORDER BY 1`,
		ownerID.String(),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query monthly stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return Stats{}, fmt.Errorf("scan monthly stats: %w", err)
		}
		st.Monthly = append(st.Monthly, mc)
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRow(row rowScanner) (*Record, error) {
	var rec Record
	var id, owner, purchasedAt, createdAt string
	if err := row.Scan(&id, &owner, &rec.FileName, &rec.FilePath, &rec.MerchantName,
		&rec.TotalAmount, &purchasedAt, &rec.Confidence, &rec.ItemsJSON, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if rec.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	if rec.PurchasedAt, err = time.Parse(time.RFC3339Nano, purchasedAt); err != nil {
		return nil, fmt.Errorf("parse purchased_at: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}
