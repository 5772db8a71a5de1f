package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"receiptscan/internal/common"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	id            UUID PRIMARY KEY,
	owner_id      UUID NOT NULL,
	file_name     TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	merchant_name TEXT NOT NULL,
	total_amount  DOUBLE PRECISION NOT NULL,
	purchased_at  TIMESTAMPTZ NOT NULL,
	confidence    REAL NOT NULL,
	items         TEXT NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_owner_file_idx ON receipts (owner_id, file_name, created_at DESC);
`

// PostgresStore is the pgx-backed ReceiptStore.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects a pool, verifies the connection and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("store.postgres.ready", "max_conns", poolCfg.MaxConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO receipts
			(id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.OwnerID, rec.FileName, rec.FilePath, rec.MerchantName,
		rec.TotalAmount, rec.PurchasedAt, rec.Confidence, rec.ItemsJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestForFile(ctx context.Context, ownerID uuid.UUID, fileName string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at
		FROM receipts
		WHERE owner_id = $1 AND file_name = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID, fileName,
	)

	var rec Record
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.FileName, &rec.FilePath, &rec.MerchantName,
		&rec.TotalAmount, &rec.PurchasedAt, &rec.Confidence, &rec.ItemsJSON, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest receipt: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, file_name, file_path, merchant_name, total_amount, purchased_at, confidence, items, created_at
		FROM receipts
		WHERE owner_id = $1 AND purchased_at >= $2 AND purchased_at <= $3
		ORDER BY purchased_at`,
		ownerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.FileName, &rec.FilePath, &rec.MerchantName,
			&rec.TotalAmount, &rec.PurchasedAt, &rec.Confidence, &rec.ItemsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, ownerID uuid.UUID) (Stats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(AVG(total_amount), 0),
			COALESCE(MIN(purchased_at), 'epoch'::timestamptz),
			COALESCE(MAX(purchased_at), 'epoch'::timestamptz)
		FROM receipts
		WHERE owner_id = $1`,
		ownerID,
	)

	var st Stats
	if err := row.Scan(&st.Count, &st.TotalAmount, &st.Average, &st.Earliest, &st.Latest); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT to_char(purchased_at, 'YYYY-MM'), COUNT(*)
		FROM receipts
		WHERE owner_id = $1
		GROUP BY 1
		ORDER BY 1`,
		ownerID,
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
