package sqlite

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hasna/convo/internal/storage"
)

// RetryConfig controls exponential backoff on SQLITE_BUSY.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	JitterPct  float64
}

// DefaultRetryConfig: 5 retries, 25ms base, 25% jitter. With doubling this
// covers roughly a second of write contention on top of the driver's own
// busy timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		BaseDelay:  25 * time.Millisecond,
		JitterPct:  0.25,
	}
}

// retryOnBusy retries fn on lock contention. When every attempt fails with
// a busy error the final error wraps storage.ErrBusy so callers can treat
// it as retryable.
func retryOnBusy(cfg RetryConfig, fn func() error, sleep func(time.Duration)) error {
	err := fn()
	if err == nil || !isBusy(err) {
		return err
	}
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		delay := cfg.BaseDelay * (1 << (attempt - 1))
		jitter := time.Duration(float64(delay) * rand.Float64() * cfg.JitterPct)
		sleep(delay + jitter)

		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", storage.ErrBusy, err)
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
