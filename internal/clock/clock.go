// Package clock abstracts wall-clock reads and waits so that polling loops
// and expiry checks can be driven by a fake in tests.
package clock

import "time"

// Clock provides the current time and timed waits.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for d to elapse and then sends the current time on the
	// returned channel.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
