package util

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, doubling the delay between runs.
// It returns nil as soon as one run succeeds, the context error if the
// context ends while waiting, and otherwise the error of the final run.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
