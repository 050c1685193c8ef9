package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
	Clock  clockwork.Clock
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Tables live in a schema named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
		Clock:  clockwork.NewRealClock(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("failed to reach postgres", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewStorageError("failed to create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."stock_snapshots"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT NOT NULL,
			fetched_at BIGINT NOT NULL,
			name TEXT,
			price DOUBLE PRECISION,
			change DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			previous_close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			history JSONB,
			metrics JSONB,
			PRIMARY KEY (symbol, fetched_at)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("failed to create stock_snapshots", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSnapshots(ctx context.Context, batch []models.MStockSnapshot) (err error) {
	defer func() { observeWrite(err) }()

	rows := storable(batch)
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewStorageError("begin snapshot write", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, fetched_at) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			change = EXCLUDED.change,
			change_percent = EXCLUDED.change_percent,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			previous_close = EXCLUDED.previous_close,
			volume = EXCLUDED.volume,
			history = EXCLUDED.history,
			metrics = EXCLUDED.metrics
	`, d.table(), snapshotColumns)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return helpers.NewStorageError("prepare snapshot write", err)
	}
	defer stmt.Close()

	for _, s := range rows {
		args, err := snapshotArgs(s)
		if err != nil {
			return helpers.NewStorageError("encode snapshot "+s.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return helpers.NewStorageError("write snapshot "+s.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError("commit snapshot write", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadLatest(ctx context.Context, symbols []string) ([]models.MStockSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE symbol = $1 ORDER BY fetched_at DESC LIMIT 1
	`, snapshotColumns, d.table())

	out := make([]models.MStockSnapshot, 0, len(symbols))
	for _, sym := range symbols {
		s, err := scanSnapshot(d.DB.QueryRowContext(ctx, query, sym))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, helpers.NewStorageError("load snapshot "+sym, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := d.Clock.Now().AddDate(0, 0, -retentionDays).UnixMilli()

	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < $1`, d.table()), cutoff)
	if err != nil {
		return helpers.NewStorageError("cleanup stock_snapshots", err)
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d snapshots older than %d days", n, retentionDays)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
