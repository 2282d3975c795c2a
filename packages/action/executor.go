package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/metrics"
	"github.com/uv1406/harness/packages/ui"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// Op is a UI operation.
type Op int

const (
	Click Op = iota
	ReadText
	Type
	Scroll
	Select
)

func (o Op) String() string {
	switch o {
	case Click:
		return "click"
	case ReadText:
		return "read"
	case Type:
		return "type"
	case Scroll:
		return "scroll"
	case Select:
		return "select"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Request describes one action. A zero Timeout uses the executor default.
type Request struct {
	Target  ui.Locator
	Op      Op
	Text    string
	Timeout time.Duration
}

// Result reports how an action completed.
type Result struct {
	Text     string
	Fallback bool
	Elapsed  time.Duration
}

// Executor is stateless between calls and safe for concurrent use.
type Executor struct {
	timeout time.Duration
	poll    time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Executor)

func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) {
		e.poll = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		timeout: DefaultTimeout,
		poll:    DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.poll <= 0 {
		e.poll = DefaultPollInterval
	}
	e.logger = logging.OrDefault(e.logger)
	return e
}

// Execute performs req against d. The caller is blocked for at most about
// twice the request timeout: once waiting for the precondition and once
// for the fallback.
func (e *Executor) Execute(ctx context.Context, d ui.Driver, req Request) (*Result, error) {
	start := time.Now()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	res, path, err := e.execute(ctx, d, req, timeout)
	elapsed := time.Since(start)

	outcome := "ok"
	var f *Failure
	switch {
	case errors.As(err, &f):
		outcome = string(f.Kind)
	case err != nil:
		outcome = "error"
	}
	e.metrics.ActionCompleted(req.Op.String(), path, outcome, elapsed)

	if err != nil {
		return nil, err
	}
	res.Elapsed = elapsed
	e.logger.Debug("action completed", "op", req.Op, "target", req.Target.String(), "fallback", res.Fallback, "elapsed", elapsed)
	return res, nil
}

func (e *Executor) execute(ctx context.Context, d ui.Driver, req Request, timeout time.Duration) (*Result, string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	el, err := e.await(waitCtx, d, req)
	cancel()
	if err != nil {
		return nil, "native", err
	}

	text, nativeErr := perform(ctx, d, el, req)
	if nativeErr == nil {
		return &Result{Text: text}, "native", nil
	}
	if !ui.Recoverable(nativeErr) {
		return nil, "native", &Failure{Kind: Unrecoverable, Op: req.Op, Target: req.Target, Cause: nativeErr}
	}

	e.logger.Warn("native action failed, using scripted fallback",
		"op", req.Op, "target", req.Target.String(), "error", nativeErr)

	fbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	text, err = fallback(fbCtx, d, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "fallback", ctx.Err()
		}
		return nil, "fallback", &Failure{Kind: FallbackExhausted, Op: req.Op, Target: req.Target, Cause: errors.Join(nativeErr, err)}
	}
	return &Result{Text: text, Fallback: true}, "fallback", nil
}

// await polls until the target satisfies the operation's precondition.
func (e *Executor) await(ctx context.Context, d ui.Driver, req Request) (ui.Element, error) {
	limiter := rate.NewLimiter(rate.Every(e.poll), 1)
	var (
		found   bool
		lastErr error
	)

	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		el, err := d.Find(ctx, req.Target)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, ui.ErrNoSuchElement) || ui.Recoverable(err) {
				lastErr = err
				continue
			}
			return nil, &Failure{Kind: Unrecoverable, Op: req.Op, Target: req.Target, Cause: err}
		}
		found = true

		ok, err := ready(ctx, el, req.Op)
		if err == nil && ok {
			return el, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	// A cancelled caller is not a missing element.
	if errors.Is(context.Cause(ctx), context.Canceled) {
		return nil, context.Cause(ctx)
	}
	if !found {
		return nil, &Failure{Kind: TargetNotFound, Op: req.Op, Target: req.Target, Cause: lastErr}
	}
	return nil, &Failure{Kind: TargetNotInteractable, Op: req.Op, Target: req.Target, Cause: lastErr}
}

func ready(ctx context.Context, el ui.Element, op Op) (bool, error) {
	switch op {
	case Scroll:
		return true, nil
	case ReadText, Type:
		return el.Displayed(ctx)
	default:
		visible, err := el.Displayed(ctx)
		if err != nil || !visible {
			return false, err
		}
		return el.Enabled(ctx)
	}
}

func perform(ctx context.Context, d ui.Driver, el ui.Element, req Request) (string, error) {
	switch req.Op {
	case Click:
		return "", el.Click(ctx)
	case Type:
		if err := el.Clear(ctx); err != nil {
			return "", err
		}
		return "", el.SendKeys(ctx, req.Text)
	case ReadText:
		return el.Text(ctx)
	case Scroll:
		_, err := d.Execute(ctx, scriptScrollIntoView, el)
		return "", err
	case Select:
		selected, err := el.Selected(ctx)
		if err != nil || selected {
			return "", err
		}
		return "", el.Click(ctx)
	default:
		return "", fmt.Errorf("unsupported operation %s", req.Op)
	}
}
