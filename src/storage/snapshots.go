package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"market-dashboard/src/helpers"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

// NewDatabase builds the snapshot history store selected by
// storage.db_type. It returns nil for "none".
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "none":
		return nil, nil
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "sqlite", "":
		return NewAsyncSQLiteDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

const snapshotColumns = `symbol, fetched_at, name, price, change, change_percent, open, high, low,
	previous_close, volume, history, metrics`

// storable drops snapshots that carry an error marker; they hold no prices
// worth keeping.
func storable(batch []models.MStockSnapshot) []models.MStockSnapshot {
	out := make([]models.MStockSnapshot, 0, len(batch))
	for _, s := range batch {
		if s.Error == "" {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func snapshotArgs(s models.MStockSnapshot) ([]interface{}, error) {
	history, err := encodeOptional(s.History)
	if err != nil {
		return nil, err
	}
	metrics, err := encodeOptional(s.Metrics)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		s.Symbol, s.Timestamp, s.Name, s.Price, s.Change, s.ChangePercent, s.Open, s.High, s.Low,
		s.PreviousClose, s.Volume, history, metrics,
	}, nil
}

// -----------------------------------------------------------------------------

func scanSnapshot(row *sql.Row) (models.MStockSnapshot, error) {
	var (
		s                models.MStockSnapshot
		history, metrics sql.NullString
	)
	err := row.Scan(&s.Symbol, &s.Timestamp, &s.Name, &s.Price, &s.Change, &s.ChangePercent,
		&s.Open, &s.High, &s.Low, &s.PreviousClose, &s.Volume, &history, &metrics)
	if err != nil {
		return s, err
	}

	if history.Valid {
		s.History = &models.MHistory{}
		if err := json.Unmarshal([]byte(history.String), s.History); err != nil {
			return s, fmt.Errorf("decode history for %s: %w", s.Symbol, err)
		}
	}
	if metrics.Valid {
		s.Metrics = &models.MMetrics{}
		if err := json.Unmarshal([]byte(metrics.String), s.Metrics); err != nil {
			return s, fmt.Errorf("decode metrics for %s: %w", s.Symbol, err)
		}
	}
	return s, nil
}

// -----------------------------------------------------------------------------

func encodeOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// -----------------------------------------------------------------------------

func observeWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SnapshotWritesTotal.WithLabelValues(status).Inc()
}

// -----------------------------------------------------------------------------

// retentionTick is how often the history is pruned.
const retentionTick = time.Hour

// RunRetention prunes db on a fixed cadence until ctx is done.
func RunRetention(ctx context.Context, db interfaces.IDatabase, clock clockwork.Clock, log *logger.Logger) {
	ticker := clock.NewTicker(retentionTick)
	defer ticker.Stop()
	handler := helpers.NewErrorHandler(log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			cleanup(ctx, db, handler)
		}
	}
}

// -----------------------------------------------------------------------------

func cleanup(ctx context.Context, db interfaces.IDatabase, handler *helpers.ErrorHandler) {
	defer handler.Recover("snapshot retention")
	if err := db.CleanupOldData(ctx); err != nil {
		handler.Handle(err, "snapshot retention")
	}
}
