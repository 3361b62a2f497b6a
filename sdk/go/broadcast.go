package careerstack

import (
	"sync"
	"time"
)

// LogoutSignal is delivered to every subscriber when any part of the
// process logs out.
type LogoutSignal struct {
	Reason string
	At     time.Time
}

// LogoutBroadcaster fans a logout signal out to all subscribers. It is the
// in-process analog of a browser's cross-tab broadcast channel: one tab's
// logout propagates to the rest without each having to discover the dead
// session through a failed request.
type LogoutBroadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan LogoutSignal
}

// NewLogoutBroadcaster creates an empty broadcaster.
func NewLogoutBroadcaster() *LogoutBroadcaster {
	return &LogoutBroadcaster{subs: make(map[int]chan LogoutSignal)}
}

// Subscribe registers a listener. The returned cancel function removes the
// subscription and closes the channel.
func (b *LogoutBroadcaster) Subscribe() (<-chan LogoutSignal, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan LogoutSignal, 4)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the signal to every subscriber. Slow subscribers with a
// full buffer are skipped rather than blocking the publisher.
func (b *LogoutBroadcaster) Publish(sig LogoutSignal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- sig:
		default:
		}
	}
}
