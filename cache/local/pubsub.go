package local

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("pubsub: closed")

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscription struct {
	ch   chan *LocalMessage
	once sync.Once
}

// LocalPubSub fans messages out to subscribers of the same process.
// Slow subscribers lose messages rather than block publishers.
type LocalPubSub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscription]struct{}
	bufSize int
	closed  bool
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{subs: make(map[string]map[*subscription]struct{}), bufSize: bufSize}
}

// Publish sends message to every current subscriber of channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.closed {
		return ErrClosed
	}
	for s := range ps.subs[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns one stream for all of channels and a cancel function
// that closes it. Cancel may be called more than once.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	s := &subscription{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return nil, nil, ErrClosed
	}
	for _, c := range channels {
		if ps.subs[c] == nil {
			ps.subs[c] = make(map[*subscription]struct{})
		}
		ps.subs[c][s] = struct{}{}
	}
	ps.mu.Unlock()

	cancel := func() {
		ps.mu.Lock()
		for _, c := range channels {
			delete(ps.subs[c], s)
		}
		ps.mu.Unlock()
		s.once.Do(func() { close(s.ch) })
	}
	return s.ch, cancel, nil
}

// Close ends every subscription.
func (ps *LocalPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return nil
	}
	ps.closed = true
	for _, set := range ps.subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
	}
	ps.subs = nil
	return nil
}
