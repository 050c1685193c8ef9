package dashboard

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"market-dashboard/src/cache"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrConnectionClosed is returned for work requested on a stopped connection.
var ErrConnectionClosed = errors.New("connection closed")

// Sink delivers messages to one client. Send must not block for long.
type Sink interface {
	Send(msg models.MMessage) error
}

// -----------------------------------------------------------------------------

// Connection owns the update schedule of one client. A single goroutine runs
// every update for the connection, so updates never overlap; forced refresh
// requests made while an update is running collapse into one.
type Connection struct {
	ID     string
	Logger *logger.Logger

	dash  *Dashboard
	sink  Sink
	cache *cache.StockCache

	force   chan struct{}
	reload  chan struct{}
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex // guards closed and every sink.Send
	closed bool

	stateMu sync.Mutex
	period  time.Duration
	config  models.MDashboardConfig
}

// -----------------------------------------------------------------------------

func newConnection(d *Dashboard, sink Sink) *Connection {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	perSec := rate.Limit(d.Config.Dashboard.RequestUpdatePerSec)
	burst := d.Config.Dashboard.RequestUpdateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Connection{
		ID:      id,
		Logger:  d.Logger.Named("conn-" + id[:8]),
		dash:    d,
		sink:    sink,
		cache:   cache.NewStockCache(d.Source, d.Clock, d.Logger),
		force:   make(chan struct{}, 1),
		reload:  make(chan struct{}, 1),
		limiter: rate.NewLimiter(perSec, burst),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

func (c *Connection) start() {
	go c.run()
}

// -----------------------------------------------------------------------------

func (c *Connection) run() {
	defer close(c.done)

	period := c.dash.Source.Interval(models.DefaultDashboardConfig().RefreshInterval)
	ticker := c.dash.Clock.NewTicker(period)
	defer func() { ticker.Stop() }()

	// The period follows the refresh interval and the market state. It is
	// settled before each delivery.
	reschedule := func() {
		next := c.Period()
		if next <= 0 || next == period {
			return
		}
		c.Logger.Info("Update interval %v -> %v", period, next)
		ticker.Stop()
		ticker = c.dash.Clock.NewTicker(next)
		period = next
	}

	c.update(false, reschedule)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.Chan():
			c.update(false, reschedule)
		case <-c.force:
			c.update(true, reschedule)
		case <-c.reload:
			c.cache.Reset()
			c.update(true, reschedule)
		}
	}
}

// -----------------------------------------------------------------------------

// update builds one payload and delivers it. A result produced after Stop is
// dropped.
func (c *Connection) update(forced bool, reschedule func()) {
	trigger := "tick"
	if forced {
		trigger = "forced"
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.UpdatePanicsTotal.Inc()
			metrics.UpdatesTotal.WithLabelValues(trigger, "panic").Inc()
			c.Logger.Error("Recovered panic in update: %v\n%s", r, debug.Stack())
			c.deliver(models.MMessage{Type: models.MessageError, Data: models.MErrorPayload{Message: "Failed to fetch data"}})
		}
	}()

	start := c.dash.Clock.Now()
	cfg := c.dash.Store.Load(c.ctx)
	payload, fromCache := c.dash.BuildUpdate(c.ctx, cfg, c.cache, forced)

	c.stateMu.Lock()
	c.config = cfg
	c.period = c.dash.Source.Interval(cfg.RefreshInterval)
	c.stateMu.Unlock()

	if c.ctx.Err() != nil {
		metrics.UpdatesTotal.WithLabelValues(trigger, "discarded").Inc()
		return
	}
	reschedule()

	if !c.deliver(models.MMessage{Type: models.MessageUpdate, Data: payload}) {
		metrics.UpdatesTotal.WithLabelValues(trigger, "undelivered").Inc()
		return
	}
	metrics.UpdatesTotal.WithLabelValues(trigger, "sent").Inc()
	metrics.UpdateDuration.Observe(c.dash.Clock.Since(start).Seconds())
	c.Logger.Debug("Sent update (%d stocks, forced: %v, cached: %v)", len(payload.Stocks), forced, fromCache)
}

// -----------------------------------------------------------------------------

// deliver sends msg unless the connection is closed.
func (c *Connection) deliver(msg models.MMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if err := c.sink.Send(msg); err != nil {
		c.Logger.Debug("Send %s failed: %v", msg.Type, err)
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

// Notify sends a message outside the update cycle.
func (c *Connection) Notify(msg models.MMessage) error {
	if !c.deliver(msg) {
		return fmt.Errorf("notify %s: %w", msg.Type, ErrConnectionClosed)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ForceRefresh asks for an update that bypasses the stock cache.
func (c *Connection) ForceRefresh() {
	select {
	case c.force <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// RequestUpdate is the client-initiated forced refresh. It reports false
// when the client is asking too often.
func (c *Connection) RequestUpdate() bool {
	if !c.limiter.AllowN(c.dash.Clock.Now(), 1) {
		return false
	}
	c.ForceRefresh()
	return true
}

// -----------------------------------------------------------------------------

// Reload drops the connection's cached stocks and forces an update with a
// freshly loaded config.
func (c *Connection) Reload() {
	select {
	case c.reload <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Stop ends the schedule. No message reaches the sink once Stop returns; an
// update still in flight finishes in the background and is discarded.
func (c *Connection) Stop() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()

	if !already {
		c.cancel()
	}
}

// -----------------------------------------------------------------------------

// Done is closed when the schedule goroutine has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// -----------------------------------------------------------------------------

// Period is the current update period.
func (c *Connection) Period() time.Duration {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.period
}

// -----------------------------------------------------------------------------

// Config is the config used by the last update.
func (c *Connection) Config() models.MDashboardConfig {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.config.Clone()
}
