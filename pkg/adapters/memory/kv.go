// Package memory provides an in-process KV for tests and ephemeral runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/moss/pkg/core"
)

// ErrInjected is returned by operations made to fail with Fail.
var ErrInjected = errors.New("injected failure")

// Op names an operation for failure injection.
type Op string

const (
	OpGet   Op = "get"
	OpSet   Op = "set"
	OpClear Op = "clear"
)

// KV is a map-backed core.KV. It is safe for concurrent use.
type KV struct {
	mu     sync.Mutex
	data   map[string]string
	fail   map[Op]error
	writes int
}

// New creates an empty KV.
func New() *KV {
	return &KV{
		data: make(map[string]string),
		fail: make(map[Op]error),
	}
}

// Get implements core.KV.
func (m *KV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[OpGet]; err != nil {
		return "", false, err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements core.KV.
func (m *KV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[OpSet]; err != nil {
		return err
	}
	m.data[key] = value
	m.writes++
	return nil
}

// Clear implements core.KV.
func (m *KV) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[OpClear]; err != nil {
		return err
	}
	m.data = make(map[string]string)
	return nil
}

// Fail makes op return err until Heal is called. A nil err selects ErrInjected.
func (m *KV) Fail(op Op, err error) {
	if err == nil {
		err = ErrInjected
	}
	m.mu.Lock()
	m.fail[op] = err
	m.mu.Unlock()
}

// Heal removes every injected failure.
func (m *KV) Heal() {
	m.mu.Lock()
	m.fail = make(map[Op]error)
	m.mu.Unlock()
}

// Raw returns the stored value for key without failure injection.
func (m *KV) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores value without failure injection, simulating another writer.
func (m *KV) Put(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

// Writes returns the number of successful Set calls.
func (m *KV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// KVState exposes internal state for observability.
type KVState struct {
	Keys     int      `json:"keys"`
	Writes   int      `json:"writes"`
	Failures []string `json:"failures,omitempty"`
}

// State implements introspection.Introspectable.
func (m *KV) State() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := KVState{Keys: len(m.data), Writes: m.writes}
	for op := range m.fail {
		st.Failures = append(st.Failures, string(op))
	}
	return st
}

// ComponentType implements introspection.Component.
func (m *KV) ComponentType() string { return "memory" }

var _ core.KV = (*KV)(nil)
var _ introspection.Introspectable = (*KV)(nil)
var _ introspection.Component = (*KV)(nil)
