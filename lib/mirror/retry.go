package mirror

import (
	"context"
	"time"

	"github.com/relman/regminer/lib/consoles"
)

// RetryPolicy bounds how often a remote git operation is attempted before
// giving up. The delay between attempts grows by Multiplier up to MaxDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

func (p *RetryPolicy) Run(ctx context.Context, console consoles.Console, name string, f func() error) error {
	delay := p.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = f()
		if err == nil {
			return nil
		}

		if attempt >= p.MaxAttempts {
			return err
		}

		console.Printf("%v failed (attempt %v of %v): %v. Retrying in %v\n",
			name, attempt, p.MaxAttempts, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
