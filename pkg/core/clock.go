package core

import "time"

// Clock abstracts the wall clock so elapsed time can be driven in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
