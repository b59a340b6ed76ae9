package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock returns the current time; domain services hold one so tests can pin "now".
type Clock func() time.Time
