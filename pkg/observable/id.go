package observable

import (
	"runtime"
	"sync/atomic"
)

// globalIDCounter is the source of unique IDs for all observables.
var globalIDCounter uint64

// nextID returns the next unique ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// getGoroutineID returns the identifier of the calling goroutine, parsed from
// the "goroutine <id> " prefix of its stack trace.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
