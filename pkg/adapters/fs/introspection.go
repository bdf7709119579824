package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// KVState exposes internal state for observability.
type KVState struct {
	Path          string     `json:"path"`
	Ext           string     `json:"ext"`
	Keys          []string   `json:"keys"`
	Writes        int        `json:"writes"`
	WatcherActive bool       `json:"watcher_active"`
	LastWrite     *time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (k *KV) State() any {
	keys, _ := k.Keys()

	k.mu.RLock()
	defer k.mu.RUnlock()

	return KVState{
		Path:          k.Path,
		Ext:           k.config.Ext,
		Keys:          keys,
		Writes:        k.writes,
		WatcherActive: k.watcherActive,
		LastWrite:     k.lastWrite,
	}
}

// ComponentType implements introspection.Component.
func (k *KV) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*KV)(nil)
var _ introspection.Component = (*KV)(nil)
