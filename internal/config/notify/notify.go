// Package notify delivers settings changes to subscribers.
//
// When a reload swaps in a new snapshot, the differences between the old and
// new snapshot are published key by key, followed by one reload event. A
// reload's changes reach each subscriber together, in store.Diff order.
// Subscribers either receive every change or only the changes below a key
// prefix ("dtsh.pref.list" receives "dtsh.pref.list.headers").
package notify

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeAdded indicates a key that did not exist before.
	ChangeAdded ChangeType = iota

	// ChangeModified indicates a key whose typed value changed.
	ChangeModified

	// ChangeRemoved indicates a key that no longer exists.
	ChangeRemoved

	// ChangeReload indicates that a new snapshot was swapped in.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	// Key is the full dotted key. Empty for reload events.
	Key string

	// Type is the type of change.
	Type ChangeType

	// Old is the previous value (zero for additions).
	Old schema.Value

	// New is the new value (zero for removals).
	New schema.Value

	// Source describes what triggered the change (e.g. "load", a file path).
	Source string

	// Snapshot identifies the snapshot the change leads to.
	Snapshot uuid.UUID
}

// Observer is called when settings change.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	prefix   string
	notifier *Notifier
}

// Unsubscribe removes this subscription. Calling it more than once is
// harmless.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Prefix returns the key prefix the subscription is restricted to, or "".
func (s *Subscription) Prefix() string {
	return s.prefix
}

type subscriber struct {
	id       uint64
	prefix   string
	observer Observer
}

// Notifier fans changes out to subscribers in subscription order.
type Notifier struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64
	closed bool

	// queue is nil when delivery is synchronous.
	queue chan []Change
	done  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers changes from a dedicated goroutine. Up to size
// publications are queued before Publish blocks. A size of zero or less
// keeps delivery synchronous.
func WithAsync(size int) Option {
	return func(n *Notifier) {
		if size > 0 {
			n.queue = make(chan []Change, size)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{done: make(chan struct{})}
	for _, opt := range opts {
		opt(n)
	}
	if n.queue != nil {
		n.wg.Add(1)
		go n.run()
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePrefix("", observer)
}

// SubscribePrefix registers an observer for changes to key and to every key
// below it. Reload events are delivered to all observers.
func (n *Notifier) SubscribePrefix(key string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.subs = append(n.subs, subscriber{id: n.nextID, prefix: key, observer: observer})
	return &Subscription{id: n.nextID, prefix: key, notifier: n}
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.subs = slices.DeleteFunc(n.subs, func(s subscriber) bool { return s.id == id })
}

// Notify sends a single change.
func (n *Notifier) Notify(change Change) {
	n.send([]Change{change})
}

// Publish sends the differences between two snapshots, then a reload event.
// A nil old snapshot publishes only the reload event.
func (n *Notifier) Publish(old, new *store.Store, source string) {
	if new == nil {
		return
	}
	var changes []Change
	if old != nil {
		for _, c := range store.Diff(old, new) {
			changes = append(changes, Change{
				Key:      c.Key,
				Type:     changeType(c.Kind),
				Old:      c.Old,
				New:      c.New,
				Source:   source,
				Snapshot: new.ID(),
			})
		}
	}
	changes = append(changes, Change{Type: ChangeReload, Source: source, Snapshot: new.ID()})
	n.send(changes)
}

func changeType(k store.ChangeKind) ChangeType {
	switch k {
	case store.Added:
		return ChangeAdded
	case store.Removed:
		return ChangeRemoved
	default:
		return ChangeModified
	}
}

func (n *Notifier) send(changes []Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if n.queue == nil {
		n.deliver(changes)
		return
	}
	select {
	case n.queue <- changes:
	case <-n.done:
	}
}

// deliver calls the matching observers outside the lock, so observers may
// subscribe or unsubscribe.
func (n *Notifier) deliver(changes []Change) {
	n.mu.RLock()
	subs := slices.Clone(n.subs)
	n.mu.RUnlock()

	for _, ch := range changes {
		for _, s := range subs {
			if ch.Key == "" || covers(s.prefix, ch.Key) {
				s.observer(ch)
			}
		}
	}
}

// run delivers queued publications until Close, then drains the queue.
func (n *Notifier) run() {
	defer n.wg.Done()

	for {
		select {
		case changes := <-n.queue:
			n.deliver(changes)
		case <-n.done:
			for {
				select {
				case changes := <-n.queue:
					n.deliver(changes)
				default:
					return
				}
			}
		}
	}
}

// Close stops delivery. Queued publications are delivered before Close
// returns; later ones are dropped. Close may be called more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

// covers reports whether prefix is key itself or a dotted parent of key.
// "dtsh.pref" covers "dtsh.pref.list.headers" but not "dtsh.prefs".
func covers(prefix, key string) bool {
	if prefix == "" || prefix == key {
		return true
	}
	return strings.HasPrefix(key, prefix) && key[len(prefix)] == '.'
}
