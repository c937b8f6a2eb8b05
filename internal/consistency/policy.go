// Package consistency implements the bounded retry-poll used to tolerate
// replication lag of the backing store: a fixed-interval, fixed-maximum-wait
// repeated read.
package consistency

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when the maximum wait elapses without the
// condition becoming true.
var ErrExhausted = errors.New("consistency: wait exhausted")

// Policy bounds a visibility wait. The zero value is invalid; use Default
// when no configuration is present.
type Policy struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
}

// Default mirrors the storefront's historical 500ms/5s poll.
func Default() Policy {
	return Policy{Interval: 500 * time.Millisecond, MaxWait: 5 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.Interval <= 0 || p.MaxWait <= 0 {
		return Default()
	}

	return p
}

// Attempts returns how many reads the policy allows.
func (p Policy) Attempts() int {
	p = p.normalized()
	return int(p.MaxWait / p.Interval)
}

// Poll calls fn at the policy interval until it reports done, fails, the
// context is cancelled, or MaxWait elapses. fn is called once per interval
// slot, so a 5s/500ms policy yields exactly 10 attempts.
func (p Policy) Poll(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	p = p.normalized()

	var waited time.Duration
	for waited < p.MaxWait {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
		waited += p.Interval
	}

	return ErrExhausted
}
