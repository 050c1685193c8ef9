package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	Clock  clockwork.Clock
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
		Clock:  clockwork.NewRealClock(),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return helpers.NewStorageError("failed to create database directory", err)
		}
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("failed to reach sqlite", err)
	}

	// One writer at a time keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS stock_snapshots (
			symbol TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			name TEXT,
			price REAL,
			change REAL,
			change_percent REAL,
			open REAL,
			high REAL,
			low REAL,
			previous_close REAL,
			volume REAL,
			history TEXT,
			metrics TEXT,
			PRIMARY KEY (symbol, fetched_at)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("failed to create stock_snapshots", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveSnapshots(ctx context.Context, batch []models.MStockSnapshot) (err error) {
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stock_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
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

func (d *AsyncSQLiteDB) LoadLatest(ctx context.Context, symbols []string) ([]models.MStockSnapshot, error) {
	out := make([]models.MStockSnapshot, 0, len(symbols))
	for _, sym := range symbols {
		row := d.DB.QueryRowContext(ctx, `
			SELECT `+snapshotColumns+` FROM stock_snapshots
			WHERE symbol = ? ORDER BY fetched_at DESC LIMIT 1
		`, sym)
		s, err := scanSnapshot(row)
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

func (d *AsyncSQLiteDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := d.Clock.Now().AddDate(0, 0, -retentionDays).UnixMilli()

	res, err := d.DB.ExecContext(ctx, "DELETE FROM stock_snapshots WHERE fetched_at < ?", cutoff)
	if err != nil {
		return helpers.NewStorageError("cleanup stock_snapshots", err)
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d snapshots older than %d days", n, retentionDays)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
