package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WorkerID identifies a concurrently running test worker.
type WorkerID string

// State is a session's lifecycle position.
type State int

const (
	Uninitialized State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resource is a live external handle owned by one worker.
type Resource interface {
	// ID identifies the handle on the remote side.
	ID() string
	Close(ctx context.Context) error
}

// Profile describes the resource a worker needs.
type Profile struct {
	Name         string
	Headless     bool
	Remote       bool
	RemoteURL    string
	DriverPath   string
	Capabilities map[string]any
}

// Factory creates resources. Implementations must be safe for concurrent use.
type Factory interface {
	Create(ctx context.Context, p Profile) (Resource, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, p Profile) (Resource, error)

func (f FactoryFunc) Create(ctx context.Context, p Profile) (Resource, error) {
	return f(ctx, p)
}

// Mux routes profiles to factories by name. Unknown names fail fast with
// ErrUnsupportedProfile before anything is allocated.
type Mux struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewMux() *Mux {
	return &Mux{factories: make(map[string]Factory)}
}

// Handle registers f for the profile name. Names are case-insensitive.
func (m *Mux) Handle(name string, f Factory) *Mux {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[strings.ToLower(name)] = f
	return m
}

// Names lists the registered profile names.
func (m *Mux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.factories))
	for n := range m.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Mux) Create(ctx context.Context, p Profile) (Resource, error) {
	m.mu.RLock()
	f, ok := m.factories[strings.ToLower(p.Name)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProfile, p.Name)
	}
	return f.Create(ctx, p)
}
