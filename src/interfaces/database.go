package interfaces

import (
	"context"

	"market-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for snapshot history storage.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshots stores a freshly fetched batch. Snapshots carrying an
	// error marker are skipped.
	SaveSnapshots(ctx context.Context, batch []models.MStockSnapshot) error

	// -----------------------------------------------------------------------------

	// LoadLatest returns the most recent stored snapshot of each symbol, in
	// the order given. Symbols without history are omitted.
	LoadLatest(ctx context.Context, symbols []string) ([]models.MStockSnapshot, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
