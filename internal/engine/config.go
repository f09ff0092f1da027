package engine

import "time"

type Config struct {
	// PollInterval and TaskTimeout bound how generator nodes wait on
	// background tasks.
	PollInterval time.Duration
	TaskTimeout  time.Duration

	// MaxNodeVisits caps how often one node may run within a single walk.
	MaxNodeVisits int

	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		TaskTimeout:    5 * time.Minute,
		MaxNodeVisits:  100,
		RetryBaseDelay: 2 * time.Second,
		RetryMaxDelay:  time.Minute,
	}
}

// retryDelay is RetryBaseDelay * 2^attempt, capped at RetryMaxDelay.
func (c Config) retryDelay(attempt int) time.Duration {
	d := c.RetryBaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if c.RetryMaxDelay > 0 && d >= c.RetryMaxDelay {
			break
		}
	}
	if c.RetryMaxDelay > 0 && d > c.RetryMaxDelay {
		return c.RetryMaxDelay
	}
	return d
}
