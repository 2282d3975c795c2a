package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/api"
	harnesshttp "github.com/uv1406/harness/packages/http"
	"github.com/uv1406/harness/packages/session"
	"github.com/uv1406/harness/packages/ui"
)

// Worker is the execution context of one test attempt. The session behind it
// is acquired on first use and released by the runner when the attempt ends.
type Worker struct {
	ID      session.WorkerID
	Test    string
	Attempt int
	Logger  *slog.Logger

	registry *session.Registry
	profile  session.Profile
	actions  *action.Executor
	api      *api.Engine
}

// Profile is the resource profile this worker acquires.
func (w *Worker) Profile() session.Profile { return w.profile }

// Session returns the worker's session, acquiring it if needed.
func (w *Worker) Session(ctx context.Context) (*session.Session, error) {
	return w.registry.Acquire(ctx, w.ID, w.profile)
}

// Current returns the session without acquiring one.
func (w *Worker) Current() (*session.Session, bool) {
	return w.registry.Lookup(w.ID)
}

// UI binds the action executor to the worker's driver.
func (w *Worker) UI(ctx context.Context) (*action.Actor, error) {
	s, err := w.Session(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := session.HandleAs[ui.Driver](s)
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", ErrNoDriver, w.profile.Name)
	}
	return w.actions.Bind(d), nil
}

// Auth returns the worker's auth context.
func (w *Worker) Auth(ctx context.Context) (*session.AuthContext, error) {
	s, err := w.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Auth(), nil
}

// API returns the request engine, or nil when none is configured.
func (w *Worker) API() *api.Engine { return w.api }

// Send issues a request with the engine's default policy, authorized by the
// worker's auth context.
func (w *Worker) Send(ctx context.Context, endpoint string, body any, method string) (*harnesshttp.Response, error) {
	if w.api == nil {
		return nil, ErrNoAPI
	}
	auth, err := w.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return w.api.Send(ctx, auth, endpoint, body, method, w.api.Policy())
}
