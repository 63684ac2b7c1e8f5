package history

import "time"

// Clock supplies the current wall-clock time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock in UTC
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
