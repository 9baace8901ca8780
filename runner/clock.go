package runner

import (
	"time"

	"github.com/ridoystarlord/modelforge/naming"
)

// Clock supplies migration timestamps and the pause between related files.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// stampAfter waits until the clock formats to a migration timestamp that
// sorts strictly after prev, sleeping delay between reads.
func stampAfter(c Clock, prev time.Time, delay time.Duration) time.Time {
	if delay <= 0 {
		delay = time.Second
	}
	for {
		c.Sleep(delay)
		now := c.Now()
		if naming.Timestamp(now) > naming.Timestamp(prev) {
			return now
		}
	}
}
