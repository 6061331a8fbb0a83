package ports

import (
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
)

// KeyValueStore is the data plane: an in-memory map with optional per-key
// expiry. Every method is atomic with respect to expiry handling; a caller
// never observes a key whose expiry instant has passed.
type KeyValueStore interface {
	// Get returns the value and, when the key carries an expiry, the whole
	// seconds remaining (never negative). An expired key is removed before
	// Get reports it absent.
	Get(key string) (value string, remaining *int64, found bool)

	// Set inserts or overwrites a key and clears any prior expiry.
	Set(key, value string)

	// SetWithTTL inserts or overwrites a key and (re)arms its expiry at
	// now+ttl. The caller validates that ttl is at least one second.
	SetWithTTL(key, value string, ttl time.Duration)

	// Delete removes a key and its expiry, reporting whether it was present.
	Delete(key string) bool

	// Keys sweeps expired entries first, then returns the remaining key set
	// in unspecified order.
	Keys() []string

	// Sweep removes every expired entry, returning how many were removed.
	Sweep() int

	// Clear drops all entries, returning how many were removed.
	Clear() int

	// Len reports the number of stored entries without sweeping, so it
	// counts expired entries that have not been removed yet.
	Len() int

	// PersistentItems returns a copy of the entries that carry no expiry.
	PersistentItems() map[string]string

	// Observe registers a change observer and returns its removal func.
	Observe(fn domain.ObserverFunc) (remove func())
}

// Snapshotter persists the non-expiring portion of the store to durable
// storage and reads it back at startup.
type Snapshotter interface {
	Save(items map[string]string) error
	Load() (map[string]string, error)
}

// Subscriber is the bus's view of a connected client. Send must be safe to
// call concurrently with the subscriber's own request/response traffic and
// must return an error once the peer is gone so the bus can evict it.
type Subscriber interface {
	ID() uint64
	Send(d domain.Delivery) error
}

// PubSub is the control plane: named channels fanning messages out to
// subscribers, best effort, with dead subscribers reaped on failed sends.
type PubSub interface {
	// Subscribe adds sub to channel, creating the channel on first use.
	// Subscribing twice is a no-op.
	Subscribe(channel string, sub Subscriber)

	// Unsubscribe removes the pair and drops the channel once empty,
	// reporting whether anything changed.
	Unsubscribe(channel string, sub Subscriber) bool

	// Publish sends message to every current subscriber of channel. It
	// reports whether the channel existed when the call began; delivery
	// itself is fire and forget.
	Publish(channel string, message any) bool

	// Broadcast publishes message on every existing channel.
	Broadcast(message any)

	// Channels lists the names of channels with at least one subscriber.
	Channels() []string

	// Subscribers counts current subscribers of channel, 0 when absent.
	Subscribers(channel string) int

	// Drop removes sub from every channel it is attached to, returning the
	// number of channels it was removed from. Used when a connection dies.
	Drop(sub Subscriber) int
}
