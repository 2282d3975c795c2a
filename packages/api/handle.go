package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/uv1406/harness/packages/session"
)

// Handle is the resource bound to API-only workers. It owns no remote
// state, but binding it through the registry gives each worker its own
// AuthContext and value store with the same lifecycle as a browser.
type Handle struct {
	id     string
	engine *Engine
}

func (h *Handle) ID() string { return h.id }

// Engine returns the shared engine.
func (h *Handle) Engine() *Engine { return h.engine }

func (h *Handle) Close(ctx context.Context) error { return nil }

// Factory creates API handles bound to e.
func (e *Engine) Factory() session.Factory {
	return session.FactoryFunc(func(ctx context.Context, p session.Profile) (session.Resource, error) {
		return &Handle{id: "api-" + uuid.NewString(), engine: e}, nil
	})
}
