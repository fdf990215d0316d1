package game

import (
	"context"
	"errors"
	"sync"
)

// recorder captures broadcasts so tests can assert on emitted events.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

type recorded struct {
	Room    string
	Event   string
	Payload any
}

func (r *recorder) ToRoom(room string, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{Room: room, Event: event, Payload: payload})
}

func (r *recorder) count(room, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Room == room && e.Event == event {
			n++
		}
	}
	return n
}

func (r *recorder) last(room, event string) (recorded, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Room == room && r.events[i].Event == event {
			return r.events[i], true
		}
	}
	return recorded{}, false
}

// stubTexts is a TextSource that always returns the same text, or fails
// when broken.
type stubTexts struct {
	broken bool
}

func (s stubTexts) RandomText(ctx context.Context, language, difficulty string) (int64, string, error) {
	if s.broken {
		return 0, "", errors.New("content store down")
	}
	return 1, "the quick brown fox jumps over the lazy dog", nil
}
