package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle runs a function at most once per interval. The first call always
// runs. Safe for concurrent use.
type Throttle struct {
	inner *rate.Sometimes
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{inner: &rate.Sometimes{Interval: interval}}
}

func (t *Throttle) Do(fn func()) {
	if t == nil {
		return
	}
	t.inner.Do(fn)
}
