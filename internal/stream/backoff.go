package stream

import (
	"math/rand"
	"time"
)

// MinReconnectDelay floors every computed reconnect delay so extreme jitter
// can never produce a zero or negative sleep.
const MinReconnectDelay = 100 * time.Millisecond

// BackoffConfig bounds the reconnect schedule.
type BackoffConfig struct {
	// Base is the delay for attempt 0.
	Base time.Duration
	// Max caps the exponential growth.
	Max time.Duration
}

// Delay returns the reconnect delay for the given attempt counter.
//
// The delay grows as Base·2^attempt, is capped at Max, then jittered by a
// uniform ±30% of the capped value, then floored at MinReconnectDelay.
// Exponential growth avoids hammering a recovering server; jitter breaks up
// synchronized reconnect storms across clients.
//
// Delay is a pure function of its inputs; rng may be nil, in which case the
// global rand source is used.
func Delay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	capped := cfg.Max
	// Shift overflow guard: 2^attempt saturates at Max well before 63 bits.
	if attempt < 63 {
		if d := cfg.Base << uint(attempt); d > 0 && d < cfg.Max {
			capped = d
		}
	}
	if cfg.Base >= cfg.Max {
		capped = cfg.Max
	}

	f := rand.Float64
	if rng != nil {
		f = rng.Float64
	}
	jittered := float64(capped) * (0.7 + 0.6*f())

	delay := time.Duration(jittered)
	if delay < MinReconnectDelay {
		delay = MinReconnectDelay
	}
	return delay
}
