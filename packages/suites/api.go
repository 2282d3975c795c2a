package suites

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/uv1406/harness/packages/assertions"
	"github.com/uv1406/harness/packages/capture"
	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/session"
)

// Logical endpoint names, resolved through api.endpoint.<name>[.<env>].
const (
	EndpointRegister = "users.register"
	EndpointUpdate   = "users.update.put"
	EndpointFetch    = "users.get"
)

var defaultPaths = map[string]string{
	EndpointRegister: "/api/users",
	EndpointUpdate:   "/api/users",
	EndpointFetch:    "/api/users",
}

// APIProfile is the resource profile for request-only workers.
var APIProfile = session.Profile{Name: "api"}

// FetchUserID is the fixture user read by the fetch test.
const FetchUserID = 2

// User is the registration and update payload.
type User struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

const userSchema = `{
	"type": "object",
	"required": ["data", "support"],
	"properties": {
		"data": {
			"type": "object",
			"required": ["id", "email", "first_name", "last_name", "avatar"],
			"properties": {
				"id": {"type": "integer"},
				"email": {"type": "string"},
				"first_name": {"type": "string"},
				"last_name": {"type": "string"},
				"avatar": {"type": "string"}
			}
		},
		"support": {
			"type": "object",
			"required": ["url", "text"]
		}
	}
}`

// API builds the user management tests. Each test owns its worker; the
// update test registers its own user rather than reusing another test's.
func API(ctx context.Context, cfg *config.Config) ([]runner.Test, error) {
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}
	profile := APIProfile
	ep := func(name string) string { return endpoint(cfg, name) }

	return []runner.Test{
		{
			Name:    "register user",
			Tags:    []string{"api", "smoke"},
			Profile: &profile,
			Body: func(ctx context.Context, w *runner.Worker) error {
				_, err := register(ctx, w, ep(EndpointRegister))
				return err
			},
		},
		{
			Name:    "update user",
			Tags:    []string{"api", "regression"},
			Profile: &profile,
			Body: func(ctx context.Context, w *runner.Worker) error {
				s, err := register(ctx, w, ep(EndpointRegister))
				if err != nil {
					return err
				}
				id, _ := s.Value("userId")

				update := newUser()
				resp, err := w.Send(ctx, fmt.Sprintf("%s/%v", ep(EndpointUpdate), id), update, http.MethodPut)
				if err != nil {
					return err
				}
				return assertions.Check(resp,
					assertions.Status(http.StatusOK),
					assertions.Expect("body.name", assertions.Equals, update.Name),
					assertions.Expect("body.job", assertions.Equals, update.Job),
					assertions.Expect("body.updatedAt", assertions.Exists, nil),
				)
			},
		},
		{
			Name:    "fetch user by id",
			Tags:    []string{"api", "regression"},
			Profile: &profile,
			Body: func(ctx context.Context, w *runner.Worker) error {
				resp, err := w.Send(ctx, fmt.Sprintf("%s/%d", ep(EndpointFetch), FetchUserID), nil, http.MethodGet)
				if err != nil {
					return err
				}
				return assertions.Check(resp,
					assertions.Status(http.StatusOK),
					assertions.Expect("header Content-Type", assertions.Contains, "application/json"),
					assertions.Expect("body.data.id", assertions.Equals, FetchUserID),
					assertions.Expect("body", assertions.Schema, userSchema),
				)
			},
		},
	}, nil
}

// register creates a fresh user and captures its id into the worker's session.
func register(ctx context.Context, w *runner.Worker, path string) (*session.Session, error) {
	u := newUser()
	resp, err := w.Send(ctx, path, u, http.MethodPost)
	if err != nil {
		return nil, err
	}
	if err := assertions.Check(resp,
		assertions.Status(http.StatusCreated),
		assertions.Expect("body.name", assertions.Equals, u.Name),
		assertions.Expect("body.job", assertions.Equals, u.Job),
		assertions.Expect("body.id", assertions.Exists, nil),
		assertions.Expect("body.createdAt", assertions.Exists, nil),
	); err != nil {
		return nil, err
	}

	s, err := w.Session(ctx)
	if err != nil {
		return nil, err
	}
	if missing := capture.Store(s, resp, capture.FromBody("userId", "id")); len(missing) > 0 {
		return nil, fmt.Errorf("registration response missing %v", missing)
	}
	id, _ := s.Value("userId")
	w.Logger.Info("user registered", "id", id, "name", u.Name)
	return s, nil
}

func newUser() User {
	suffix := uuid.NewString()[:8]
	return User{Name: "Test User " + suffix, Job: "Automation Tester " + suffix}
}

func endpoint(cfg *config.Config, name string) string {
	if path := cfg.Endpoint(name); path != name {
		return path
	}
	return defaultPaths[name]
}
