package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPolicy is returned for policies that cannot be honoured.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Outcome is what a single attempt produced.
type Outcome struct {
	StatusCode int
	Err        error
}

// Predicate reports whether an outcome should be retried.
type Predicate func(Outcome) bool

// ServerErrors retries responses with a status of 500 or above.
func ServerErrors(o Outcome) bool {
	return o.Err == nil && o.StatusCode >= 500
}

// AnyError retries every outcome carrying an error.
func AnyError(o Outcome) bool {
	return o.Err != nil
}

// Policy is immutable and safe to share between workers.
type Policy struct {
	maxAttempts int
	initial     time.Duration
	maxDelay    time.Duration
	multiple    float64
	retryable   Predicate
}

// Option configures a Policy.
type Option func(*Policy)

// WithFixedDelay waits d between every attempt.
func WithFixedDelay(d time.Duration) Option {
	return func(p *Policy) {
		p.initial = d
		p.maxDelay = d
		p.multiple = 1
	}
}

// WithBackoff grows the delay by multiple after each attempt, capped at max.
func WithBackoff(initial, max time.Duration, multiple float64) Option {
	return func(p *Policy) {
		p.initial = initial
		p.maxDelay = max
		p.multiple = multiple
	}
}

// WithRetryable sets the outcome classifier.
func WithRetryable(fn Predicate) Option {
	return func(p *Policy) {
		p.retryable = fn
	}
}

// New builds a policy allowing at most maxAttempts attempts. Without
// options it retries server errors with no delay.
func New(maxAttempts int, opts ...Option) (Policy, error) {
	p := Policy{
		maxAttempts: maxAttempts,
		multiple:    1,
		retryable:   ServerErrors,
	}
	for _, opt := range opts {
		opt(&p)
	}

	switch {
	case p.maxAttempts < 1:
		return Policy{}, fmt.Errorf("%w: max attempts %d is below 1", ErrInvalidPolicy, p.maxAttempts)
	case p.initial < 0 || p.maxDelay < 0:
		return Policy{}, fmt.Errorf("%w: negative delay", ErrInvalidPolicy)
	case p.multiple < 1:
		return Policy{}, fmt.Errorf("%w: backoff multiple %.2f is below 1", ErrInvalidPolicy, p.multiple)
	case p.retryable == nil:
		return Policy{}, fmt.Errorf("%w: nil retryable predicate", ErrInvalidPolicy)
	}
	if p.maxDelay < p.initial {
		p.maxDelay = p.initial
	}
	return p, nil
}

// Must is New that panics on an invalid policy. Use it for literals.
func Must(p Policy, err error) Policy {
	if err != nil {
		panic(err)
	}
	return p
}

// Once is a single-attempt policy.
func Once() Policy {
	return Policy{maxAttempts: 1, multiple: 1, retryable: ServerErrors}
}

// MaxAttempts is the total number of attempts, including the first.
func (p Policy) MaxAttempts() int {
	if p.maxAttempts < 1 {
		return 1
	}
	return p.maxAttempts
}

// Delay is the wait after the given zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if p.initial <= 0 {
		return 0
	}
	delay := float64(p.initial) * math.Pow(p.multiple, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	return time.Duration(delay)
}

// Retryable classifies an outcome.
func (p Policy) Retryable(o Outcome) bool {
	if p.retryable == nil {
		return ServerErrors(o)
	}
	return p.retryable(o)
}

// HasNext reports whether another attempt follows the given zero-based one.
func (p Policy) HasNext(attempt int) bool {
	return attempt+1 < p.MaxAttempts()
}

// WorstCase is the longest a caller can be blocked when every attempt takes
// perAttempt and every outcome is retried.
func (p Policy) WorstCase(perAttempt time.Duration) time.Duration {
	n := p.MaxAttempts()
	total := time.Duration(n) * perAttempt
	for i := 0; i < n-1; i++ {
		total += p.Delay(i)
	}
	return total
}

func (p Policy) String() string {
	return fmt.Sprintf("maxAttempts=%d delay=%s", p.MaxAttempts(), p.Delay(0))
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
