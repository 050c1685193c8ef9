package interfaces

import (
	"context"

	"market-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IConfigStore persists the dashboard document.
// -----------------------------------------------------------------------------

type IConfigStore interface {

	// Load returns the current document, falling back to defaults.
	Load(ctx context.Context) models.MDashboardConfig

	// -----------------------------------------------------------------------------

	// Save replaces the whole document and returns its content hash.
	Save(ctx context.Context, cfg models.MDashboardConfig) (string, error)
}
