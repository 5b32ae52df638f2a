package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Retryer wraps fallible operations with bounded exponential backoff. Delay
// before attempt n+1 is BaseDelay * 2^n, no jitter, no cap.
type Retryer struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.SugaredLogger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(logger *zap.SugaredLogger) *Retryer {
	return &Retryer{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Logger:     logger,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op up to MaxRetries+1 times. On exhaustion the last error is
// returned, tagged with name.
func Do[T any](ctx context.Context, r *Retryer, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := r.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				r.Logger.Infow("operation succeeded after retry", "op", name, "attempt", attempt+1)
			}
			return out, nil
		}
		lastErr = err
		r.Logger.Warnw("operation attempt failed", "op", name, "attempt", attempt+1, "of", attempts, "error", err)

		if attempt == attempts-1 {
			break
		}
		delay := r.BaseDelay * (1 << attempt)
		if serr := r.sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("%s: %w", name, serr)
		}
	}

	r.Logger.Errorw("operation failed, retries exhausted", "op", name, "attempts", attempts, "error", lastErr)
	return zero, fmt.Errorf("%s: %w", name, lastErr)
}
