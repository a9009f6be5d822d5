package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// PostgresCatalog keeps one row per uploaded shard in PostgreSQL.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog opens a connection to PostgreSQL, pings it per retry,
// runs schema migrations and returns a ready-to-use PostgresCatalog.
func NewPostgresCatalog(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresCatalog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pc := &PostgresCatalog{db: db}
	if err := pc.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pc, nil
}

func (pc *PostgresCatalog) migrate() error {
	_, err := pc.db.Exec(`
		CREATE TABLE IF NOT EXISTS ingest_shards (
			id          SERIAL PRIMARY KEY,
			run_id      UUID         NOT NULL,
			taxi_type   VARCHAR(32)  NOT NULL,
			period      CHAR(7)      NOT NULL,
			ordinal     INTEGER      NOT NULL,
			week_start  DATE         NOT NULL,
			week_end    DATE         NOT NULL,
			row_count   BIGINT       NOT NULL DEFAULT 0,
			byte_size   BIGINT       NOT NULL DEFAULT 0,
			bucket      TEXT         NOT NULL,
			object_key  TEXT         NOT NULL,
			uploaded_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (bucket, object_key)
		);

		CREATE INDEX IF NOT EXISTS idx_ingest_shards_period ON ingest_shards(taxi_type, period);
		CREATE INDEX IF NOT EXISTS idx_ingest_shards_run    ON ingest_shards(run_id);
	`)
	return err
}

// Record upserts the shard, keyed by bucket and object key. A re-run of the
// same month replaces the earlier row.
func (pc *PostgresCatalog) Record(ctx context.Context, s *models.Shard) error {
	_, err := pc.db.ExecContext(ctx, `
		INSERT INTO ingest_shards
			(run_id, taxi_type, period, ordinal, week_start, week_end, row_count, byte_size, bucket, object_key, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (bucket, object_key) DO UPDATE SET
			run_id      = EXCLUDED.run_id,
			row_count   = EXCLUDED.row_count,
			byte_size   = EXCLUDED.byte_size,
			uploaded_at = EXCLUDED.uploaded_at
	`, s.RunID, s.TaxiType, s.Period, s.Ordinal, s.WeekStart, s.WeekEnd,
		s.Rows, s.Bytes, s.Bucket, s.Key, s.UploadedAt)
	if err != nil {
		return fmt.Errorf("postgres: record shard %s: %w", s.Key, err)
	}
	return nil
}

// FetchPeriod lists the catalogued shards of one taxi type and month in
// week order.
func (pc *PostgresCatalog) FetchPeriod(ctx context.Context, taxiType, period string) ([]*models.Shard, error) {
	rows, err := pc.db.QueryContext(ctx, `
		SELECT run_id, taxi_type, period, ordinal, week_start, week_end, row_count, byte_size, bucket, object_key, uploaded_at
		FROM ingest_shards
		WHERE taxi_type = $1 AND period = $2
		ORDER BY ordinal
	`, taxiType, period)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch period: %w", err)
	}
	defer rows.Close()

	var shards []*models.Shard
	for rows.Next() {
		s := &models.Shard{}
		if err := rows.Scan(
			&s.RunID, &s.TaxiType, &s.Period, &s.Ordinal, &s.WeekStart, &s.WeekEnd,
			&s.Rows, &s.Bytes, &s.Bucket, &s.Key, &s.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		shards = append(shards, s)
	}
	return shards, rows.Err()
}

func (pc *PostgresCatalog) Close() error {
	return pc.db.Close()
}
