// Package pubsub implements the channel bus: named channels fanning
// published messages out to connected subscribers, best effort.
package pubsub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/ports"
)

// Bus maps channel names to subscriber sets. One mutex serializes every
// operation including the send loop inside Publish, which is what gives
// per-channel delivery its ordering guarantee. A channel with no
// subscribers does not exist.
//
// Delivery is fire and forget: a subscriber whose Send fails is evicted
// from the channel inside the same critical section and the publisher never
// hears about it. Slow consumers are the subscriber implementation's
// problem, not the bus's.
type Bus struct {
	channels map[string]map[uint64]ports.Subscriber
	logger   *slog.Logger
	dropped  atomic.Uint64
	mu       sync.Mutex
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		channels: make(map[string]map[uint64]ports.Subscriber),
		logger:   logger,
	}
}

// Subscribe attaches sub to channel, creating the channel on first use.
// Subscribing an already-attached subscriber is a no-op.
func (b *Bus) Subscribe(channel string, sub ports.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[channel]
	if !ok {
		subs = make(map[uint64]ports.Subscriber)
		b.channels[channel] = subs
	}
	subs[sub.ID()] = sub
}

// Unsubscribe detaches sub from channel, dropping the channel once its
// subscriber set is empty. Reports whether anything changed.
func (b *Bus) Unsubscribe(channel string, sub ports.Subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[channel]
	if !ok {
		return false
	}
	if _, ok := subs[sub.ID()]; !ok {
		return false
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(b.channels, channel)
	}
	return true
}

// Publish sends message to every current subscriber of channel, evicting
// any subscriber whose send fails. Reports whether the channel existed when
// the call began.
func (b *Bus) Publish(channel string, message any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publishLocked(channel, message)
}

// Broadcast publishes message on every existing channel.
func (b *Bus) Broadcast(message any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// publishLocked can delete emptied channels, so snapshot the names.
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	for _, name := range names {
		b.publishLocked(name, message)
	}
}

// Channels lists channels with at least one subscriber, in unspecified order.
func (b *Bus) Channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	return names
}

// Subscribers counts the current subscribers of channel; 0 when absent.
func (b *Bus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels[channel])
}

// Drop detaches sub from every channel it is attached to, returning the
// number of channels it was removed from. The server calls this when a
// connection dies so dead sockets do not linger until the next publish.
func (b *Bus) Drop(sub ports.Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for name, subs := range b.channels {
		if _, ok := subs[sub.ID()]; !ok {
			continue
		}
		delete(subs, sub.ID())
		removed++
		if len(subs) == 0 {
			delete(b.channels, name)
		}
	}
	return removed
}

// Dropped reports how many subscribers have been evicted after failed sends
// over the bus's lifetime.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) publishLocked(channel string, message any) bool {
	subs, ok := b.channels[channel]
	if !ok {
		return false
	}

	delivery := domain.Delivery{Channel: channel, Message: message}
	var dead []uint64
	for id, sub := range subs {
		if err := sub.Send(delivery); err != nil {
			b.logger.Warn("evicting subscriber after failed delivery",
				"channel", channel, "subscriber", id, "error", err)
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		delete(subs, id)
		b.dropped.Add(1)
	}
	if len(subs) == 0 {
		delete(b.channels, channel)
	}
	return true
}
