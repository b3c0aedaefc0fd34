package batch

import (
	"context"
	"os"
	"sync"

	"github.com/sells-group/imagery-cli/internal/geo"
)

// fakeFetcher writes a placeholder file for coordinates it should succeed on
// and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	fail    map[geo.Coordinate]bool
	calls   []string
	onFetch func()
}

func newFakeFetcher(failing ...Record) *fakeFetcher {
	f := &fakeFetcher{fail: make(map[geo.Coordinate]bool)}
	for _, r := range failing {
		f.fail[r.Coordinate()] = true
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, coord geo.Coordinate, dest string) bool {
	f.mu.Lock()
	f.calls = append(f.calls, dest)
	fail := f.fail[coord]
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch()
	}
	if fail {
		return false
	}
	return os.WriteFile(dest, []byte("img"), 0o644) == nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
