package watcher

import "context"

// Handler receives change announcements. source names the trigger
// ("poll", "http", "music", "rpc", ...).
type Handler func(source string)

// ConfigChangeSource is a way of learning that the config document changed.
type ConfigChangeSource interface {
	Name() string
	Start(ctx context.Context) error
}
