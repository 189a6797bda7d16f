package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SequentialIDs returns an id generator yielding canonical version 4 UUIDs
// that end in an increasing counter, so test failures show which entity was
// created first.
func SequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n.Add(1))
	}
}

// FixedClock returns a clock that always reads t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
