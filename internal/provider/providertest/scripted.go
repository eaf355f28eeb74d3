// Package providertest provides a scripted Provider for tests.
package providertest

import (
	"context"
	"iter"
	"sync"

	"github.com/set-night/mindchat/internal/provider"
)

// Scripted replays Fragments and then Err (if set). Every request is recorded.
type Scripted struct {
	Fragments []string
	Err       error

	mu       sync.Mutex
	requests []provider.Request
}

var _ provider.Provider = (*Scripted)(nil)

func (s *Scripted) Name() string {
	return "scripted"
}

func (s *Scripted) Stream(_ context.Context, req provider.Request) iter.Seq2[string, error] {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, f := range s.Fragments {
			if !yield(f, nil) {
				return
			}
		}
		if s.Err != nil {
			yield("", s.Err)
		}
	}
}

// Requests returns a copy of the requests seen so far.
func (s *Scripted) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.requests...)
}
