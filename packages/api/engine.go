package api

import (
	"context"
	"log/slog"
	"strings"

	harnesshttp "github.com/uv1406/harness/packages/http"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/retry"
)

// APIKeyHeader carries the environment credential.
const APIKeyHeader = "x-api-key"

// AuthSource supplies an optional bearer token for one worker.
type AuthSource interface {
	Token() (string, bool)
}

var supportedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// Engine is safe for concurrent use; per-worker state lives in the
// AuthSource passed to each call.
type Engine struct {
	client   *harnesshttp.Client
	policy   retry.Policy
	resolve  func(string) string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clientOp []harnesshttp.ClientOption
}

type Option func(*Engine)

// WithPolicy sets the policy used by the verb helpers.
func WithPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithEndpointResolver maps logical endpoint names to paths.
func WithEndpointResolver(fn func(string) string) Option {
	return func(e *Engine) {
		e.resolve = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClientOptions passes options to the underlying HTTP client.
func WithClientOptions(opts ...harnesshttp.ClientOption) Option {
	return func(e *Engine) {
		e.clientOp = append(e.clientOp, opts...)
	}
}

// NewEngine targets baseURL and authenticates with apiKey when non-empty.
func NewEngine(baseURL, apiKey string, opts ...Option) *Engine {
	e := &Engine{
		policy:  retry.Once(),
		resolve: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(e)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if apiKey != "" {
		headers[APIKeyHeader] = apiKey
	}
	clientOpts := append([]harnesshttp.ClientOption{
		harnesshttp.WithBaseURL(baseURL),
		harnesshttp.WithDefaultHeaders(headers),
	}, e.clientOp...)
	e.client = harnesshttp.NewClient(clientOpts...)
	e.logger = logging.OrDefault(e.logger)
	return e
}

// Policy is the default policy used by the verb helpers.
func (e *Engine) Policy() retry.Policy {
	return e.policy
}

// Send issues method against endpoint, retrying per policy. A nil error
// means a non-retryable response was received; it may still be a 4xx.
func (e *Engine) Send(ctx context.Context, auth AuthSource, endpoint string, body any, method string, policy retry.Policy) (*harnesshttp.Response, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	path := e.resolve(endpoint)
	if !supportedMethods[m] {
		return nil, &RequestFailure{Kind: KindIllegalMethod, Method: method, Endpoint: path}
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts(); attempt++ {
		req, err := e.build(m, path, body, auth)
		if err != nil {
			return nil, err
		}

		resp, err := e.client.Do(ctx, req)
		if err != nil {
			e.metrics.HTTPAttempt(m, 0, 0)
			lastErr = err
			if ctx.Err() != nil || !policy.HasNext(attempt) {
				return nil, &RequestFailure{Kind: KindTransport, Method: m, Endpoint: path, Attempts: attempt + 1, Cause: err}
			}
			e.logger.Warn("request failed in transport, retrying", "method", m, "endpoint", path, "attempt", attempt+1, "error", err)
		} else {
			e.metrics.HTTPAttempt(m, resp.StatusCode, resp.Duration)
			e.logger.Debug("request attempt", "method", m, "endpoint", path, "attempt", attempt+1, "status", resp.StatusCode, "duration", resp.Duration)

			if !policy.Retryable(retry.Outcome{StatusCode: resp.StatusCode}) {
				return resp, nil
			}
			if !policy.HasNext(attempt) {
				return nil, &RequestFailure{Kind: KindExhausted, Method: m, Endpoint: path, Attempts: attempt + 1, Last: resp}
			}
			e.logger.Warn("retryable status, retrying", "method", m, "endpoint", path, "attempt", attempt+1, "status", resp.StatusCode)
		}

		if err := retry.Sleep(ctx, policy.Delay(attempt)); err != nil {
			return nil, &RequestFailure{Kind: KindTransport, Method: m, Endpoint: path, Attempts: attempt + 1, Cause: err}
		}
	}

	// Unreachable: the final attempt always returns above.
	return nil, &RequestFailure{Kind: KindTransport, Method: m, Endpoint: path, Attempts: policy.MaxAttempts(), Cause: lastErr}
}

func (e *Engine) build(method, path string, body any, auth AuthSource) (*harnesshttp.Request, error) {
	req := harnesshttp.NewRequest(method, path)
	if method != "GET" && method != "DELETE" && body != nil {
		if err := req.SetJSON(body); err != nil {
			return nil, err
		}
	}
	if auth != nil {
		if token, ok := auth.Token(); ok {
			req.SetBearer(token)
		}
	}
	return req, nil
}

func (e *Engine) Get(ctx context.Context, auth AuthSource, endpoint string) (*harnesshttp.Response, error) {
	return e.Send(ctx, auth, endpoint, nil, "GET", e.policy)
}

func (e *Engine) Post(ctx context.Context, auth AuthSource, endpoint string, body any) (*harnesshttp.Response, error) {
	return e.Send(ctx, auth, endpoint, body, "POST", e.policy)
}

func (e *Engine) Put(ctx context.Context, auth AuthSource, endpoint string, body any) (*harnesshttp.Response, error) {
	return e.Send(ctx, auth, endpoint, body, "PUT", e.policy)
}

func (e *Engine) Patch(ctx context.Context, auth AuthSource, endpoint string, body any) (*harnesshttp.Response, error) {
	return e.Send(ctx, auth, endpoint, body, "PATCH", e.policy)
}

func (e *Engine) Delete(ctx context.Context, auth AuthSource, endpoint string) (*harnesshttp.Response, error) {
	return e.Send(ctx, auth, endpoint, nil, "DELETE", e.policy)
}
