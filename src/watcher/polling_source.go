package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"market-dashboard/src/configstore"
	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

// PollingSource notices edits made to the config file outside the process.
// It stats the file on every tick and only hashes it when its modification
// time or size moved.
type PollingSource struct {
	Path     string
	Interval time.Duration
	Tracker  *HashTracker
	Logger   *logger.Logger

	clock    clockwork.Clock
	emit     Handler
	checkNow chan struct{}
	errors   *helpers.ErrorHandler

	mu       sync.Mutex
	statSeen bool
	lastMod  time.Time
	lastSize int64
}

// -----------------------------------------------------------------------------

func NewPollingSource(path string, interval time.Duration, tracker *HashTracker, clock clockwork.Clock, log *logger.Logger, emit Handler) *PollingSource {
	return &PollingSource{
		Path:     path,
		Interval: interval,
		Tracker:  tracker,
		Logger:   log,
		clock:    clock,
		emit:     emit,
		checkNow: make(chan struct{}, 1),
		errors:   helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

func (p *PollingSource) Name() string {
	return "poll"
}

// -----------------------------------------------------------------------------

// Prime records the current file state without announcing it.
func (p *PollingSource) Prime() {
	p.Tracker.Exclusive(func() {
		if hash, ok := p.read(); ok {
			p.Tracker.Record(hash)
		}
	})
}

// -----------------------------------------------------------------------------

// Start launches the polling loop; it stops when ctx is cancelled.
func (p *PollingSource) Start(ctx context.Context) error {
	go p.run(ctx)
	return nil
}

// -----------------------------------------------------------------------------

func (p *PollingSource) run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Logger.Info("Watching %s every %v", p.Path, p.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll()
		case <-p.checkNow:
			p.poll()
		}
	}
}

// -----------------------------------------------------------------------------

// poll runs one Check; a panic ends only this round.
func (p *PollingSource) poll() {
	defer p.errors.Recover("config poll")
	p.Check()
}

// -----------------------------------------------------------------------------

// CheckNow asks the loop for an immediate check. Requests coalesce.
func (p *PollingSource) CheckNow() {
	select {
	case p.checkNow <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Check looks at the file once and announces a change if its content hash
// moved. It reports whether a change was announced.
func (p *PollingSource) Check() bool {
	changed := false
	p.Tracker.Exclusive(func() {
		if hash, ok := p.read(); ok {
			changed = p.Tracker.Observe(hash)
		}
	})
	if !changed {
		return false
	}

	p.Logger.Info("Config file %s changed", p.Path)
	p.emit(p.Name())
	return true
}

// -----------------------------------------------------------------------------

// read returns the content hash when the file exists and changed on disk
// since the last look.
func (p *PollingSource) read() (string, bool) {
	info, err := os.Stat(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false
	}
	if err != nil {
		p.Logger.Debug("Cannot stat %s: %v", p.Path, err)
		return "", false
	}

	p.mu.Lock()
	unchanged := p.statSeen && info.ModTime().Equal(p.lastMod) && info.Size() == p.lastSize
	p.statSeen = true
	p.lastMod = info.ModTime()
	p.lastSize = info.Size()
	p.mu.Unlock()
	if unchanged {
		return "", false
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		p.Logger.Debug("Cannot read %s: %v", p.Path, err)
		return "", false
	}
	hash, err := configstore.Hash(data)
	if err != nil {
		p.Logger.Warning("Config file %s is not valid JSON, ignoring edit: %v", p.Path, err)
		return "", false
	}
	return hash, true
}
