package dashboard

import (
	"time"

	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
)

// Dispatcher fans a config change out to every connection: an immediate
// configChanged notice, then a forced refresh once the settle delay has
// passed.
type Dispatcher struct {
	Registry *Registry
	Settle   time.Duration
	Logger   *logger.Logger

	clock clockwork.Clock
}

// -----------------------------------------------------------------------------

func NewDispatcher(registry *Registry, settle time.Duration, clock clockwork.Clock, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		Registry: registry,
		Settle:   settle,
		Logger:   log,
		clock:    clock,
	}
}

// -----------------------------------------------------------------------------

// Dispatch announces a change detected by source. Connections that appear
// during the settle delay are refreshed too; connections gone by then are
// skipped.
func (d *Dispatcher) Dispatch(source string) {
	metrics.ConfigChangesTotal.WithLabelValues(source).Inc()

	conns := d.Registry.Snapshot()
	d.Logger.Info("Config changed (%s), notifying %d connections", source, len(conns))

	notice := models.MMessage{Type: models.MessageConfigChanged, Data: struct{}{}}
	for _, c := range conns {
		if err := c.Notify(notice); err != nil {
			d.Logger.Debug("Skipping %s: %v", c.ID, err)
		}
	}

	d.clock.AfterFunc(d.Settle, func() {
		for _, c := range d.Registry.Snapshot() {
			c.ForceRefresh()
		}
	})
}
