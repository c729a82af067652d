// Package status tracks where displayed data last came from: the primary
// API, a CORS relay, or the bundled fallback dataset.
package status

import "sync"

// Source identifies the origin of the most recent successful fetch.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceLive    Source = "live"
	SourceProxy   Source = "proxy"
	SourceMock    Source = "mock"
)

// Signal is an observable data-source indicator. Subscribers are
// notified only when the value actually changes.
type Signal struct {
	mu      sync.Mutex
	current Source
	subs    []func(Source)
}

func NewSignal() *Signal {
	return &Signal{current: SourceUnknown}
}

// Get returns the current source.
func (s *Signal) Get() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set updates the source and fans out to subscribers on change.
// Setting the same value again is a no-op.
func (s *Signal) Set(src Source) {
	s.mu.Lock()
	if s.current == src {
		s.mu.Unlock()
		return
	}
	s.current = src
	subs := make([]func(Source), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(src)
	}
}

// Subscribe registers a callback invoked on every change.
func (s *Signal) Subscribe(fn func(Source)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
