package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures retry behavior with exponential backoff.
type Config struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // exponential growth factor
	Jitter     bool          // +/-10% randomization on each delay
}

// DefaultConfig returns the retry configuration used for provider calls:
// two retries with exponential backoff, matching the dispatcher's
// default bound.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// PublishConfig returns the retry configuration for publishing comments,
// where transient hosting-API unavailability deserves a slightly longer
// leash.
func PublishConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Retryable marks errors whose operation is worth repeating.
type Retryable interface {
	Retryable() bool
}

// Do executes op until it succeeds, exhausts cfg.MaxRetries, returns a
// non-retryable error, or the context ends. The last error is returned.
// An error is retried only if it implements Retryable and reports true.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if r, ok := lastErr.(Retryable); !ok || !r.Retryable() {
			return lastErr
		}
		if attempt >= cfg.MaxRetries {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}

		delay := Delay(cfg, attempt)
		log.Debug().
			Int("attempt", attempt+1).
			Int("max_retries", cfg.MaxRetries).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying after backoff")

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}

	return lastErr
}

// Delay computes the backoff delay for a given attempt number (0-based).
func Delay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > max {
		delay = max
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// MaxElapsed returns an upper bound on the time Do can spend across all
// attempts, given a per-attempt budget. Used to size run deadlines.
func MaxElapsed(cfg Config, perAttempt time.Duration) time.Duration {
	total := time.Duration(cfg.MaxRetries+1) * perAttempt
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		// Worst case includes the jitter overshoot.
		d := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
		if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && d > max {
			d = max
		}
		total += time.Duration(d * 1.1)
	}
	return total
}
