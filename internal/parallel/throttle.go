package parallel

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Throttle delays refinement while the host is busy.
//
// Wait measures overall CPU utilisation over Interval and returns once it
// drops below Threshold percent. A zero Threshold disables the throttle.
type Throttle struct {
	// Threshold is the utilisation, in percent, above which Wait blocks.
	Threshold float64

	// Interval is the measurement window of one utilisation sample.
	Interval time.Duration

	// MaxWait bounds how long a single Wait may block. Zero means no bound.
	MaxWait time.Duration

	// percent replaces cpu.PercentWithContext in tests.
	percent func(ctx context.Context, interval time.Duration) (float64, error)
}

// NewThrottle returns a throttle at threshold percent with a 200ms
// measurement interval.
func NewThrottle(threshold float64) *Throttle {
	return &Throttle{
		Threshold: threshold,
		Interval:  200 * time.Millisecond,
		MaxWait:   5 * time.Second,
	}
}

func hostPercent(ctx context.Context, interval time.Duration) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, nil
	}
	return pcts[0], nil
}

// Wait blocks while utilisation is at or above the threshold. It returns
// early with ctx.Err() when ctx is done. Measurement errors disable the wait.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.Threshold <= 0 {
		return ctx.Err()
	}

	measure := t.percent
	if measure == nil {
		measure = hostPercent
	}

	var deadline time.Time
	if t.MaxWait > 0 {
		deadline = time.Now().Add(t.MaxWait)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pct, err := measure(ctx, t.Interval)
		if err != nil || pct < t.Threshold {
			return ctx.Err()
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil
		}
	}
}
