package util

import "time"

// Clock abstracts wall-clock time so ledger timestamps are controllable in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
