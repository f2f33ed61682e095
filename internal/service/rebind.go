package service

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/danmuck/radiomute/internal/clock"
	"github.com/danmuck/radiomute/internal/config"
)

// defaultRebindJitter spreads retries when several tools fight over the
// same OSC port.
const defaultRebindJitter = 0.2

// RebindPolicy paces attempts to bind the inbound OSC port after it was
// refused or lost. The usual cause is another OSC tool holding the port,
// so delays grow quickly and stay long.
type RebindPolicy struct {
	Initial time.Duration
	Max     time.Duration
	// Jitter is the randomization factor applied to each delay; 0 gives
	// exact doubling.
	Jitter float64
}

func rebindPolicyFromConfig(cfg config.Config) RebindPolicy {
	return RebindPolicy{
		Initial: cfg.OSC.RebindInitial,
		Max:     cfg.OSC.RebindMax,
		Jitter:  defaultRebindJitter,
	}
}

// newBackOff never gives up; the listener keeps retrying until the
// service stops.
func (p RebindPolicy) newBackOff(clk clock.Clock) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	if clk != nil {
		b.Clock = clk
	}
	b.Reset()
	return b
}
