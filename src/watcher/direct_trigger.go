package watcher

import "context"

// DirectTrigger is used by code paths that write the config themselves.
// The write and the hash update happen while polling is held off, so the
// change is announced once, immediately, by the writer.
type DirectTrigger struct {
	Tracker *HashTracker
	emit    Handler
}

// -----------------------------------------------------------------------------

func NewDirectTrigger(tracker *HashTracker, emit Handler) *DirectTrigger {
	return &DirectTrigger{Tracker: tracker, emit: emit}
}

// -----------------------------------------------------------------------------

func (d *DirectTrigger) Name() string {
	return "direct"
}

// -----------------------------------------------------------------------------

func (d *DirectTrigger) Start(context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

// Save runs write, which persists the document and returns its content
// hash, then announces the change on behalf of origin. Nothing is announced
// when write fails.
func (d *DirectTrigger) Save(origin string, write func() (string, error)) (string, error) {
	var (
		hash string
		err  error
	)
	d.Tracker.Exclusive(func() {
		hash, err = write()
		if err == nil {
			d.Tracker.Record(hash)
		}
	})
	if err != nil {
		return "", err
	}

	d.emit(origin)
	return hash, nil
}
