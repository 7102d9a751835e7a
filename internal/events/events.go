// Package events implements the document-lifecycle broadcast bus:
// many independent subscribers each receive every event published
// after they subscribe, with non-blocking publish and per-subscriber
// backpressure, expressed as a Go channel-and-select idiom (no
// broadcast-channel type exists in the standard library).
package events

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the per-subscriber buffered channel size.
const DefaultCapacity = 256

// DocEventKind enumerates document lifecycle transitions.
type DocEventKind string

const (
	DocCreated DocEventKind = "created"
	DocUpdated DocEventKind = "updated"
	DocDeleted DocEventKind = "deleted"
	DocRenamed DocEventKind = "renamed"
	DocMoved   DocEventKind = "moved"
)

// DocEvent describes a single document lifecycle transition. Only the
// fields relevant to Kind are populated: RelPath for Created/Updated/
// Deleted, OldPath/NewPath for Renamed/Moved.
type DocEvent struct {
	Kind    DocEventKind
	RelPath string
	OldPath string
	NewPath string
}

// FolderEventKind enumerates folder lifecycle transitions.
type FolderEventKind string

const (
	FolderCreated FolderEventKind = "created"
	FolderRenamed FolderEventKind = "renamed"
	FolderMoved   FolderEventKind = "moved"
	FolderDeleted FolderEventKind = "deleted"
)

// PathPair records a document's path before and after a folder-level
// rename or move.
type PathPair struct {
	Old string
	New string
}

// FolderEvent describes a single folder lifecycle transition. Renamed
// and Moved carry AffectedDocs (every document whose path changed as a
// side effect); Deleted carries RemovedDocs.
type FolderEvent struct {
	Kind         FolderEventKind
	RelPath      string
	OldPath      string
	NewPath      string
	AffectedDocs []PathPair
	RemovedDocs  []string
}

// EventKind tags which payload an Event carries.
type EventKind string

const (
	EventDoc    EventKind = "doc"
	EventFolder EventKind = "folder"
)

// Event is the tagged union published on the bus.
type Event struct {
	Kind   EventKind
	Doc    *DocEvent
	Folder *FolderEvent
}

// Subscription is a single subscriber's view of the bus: its event
// channel plus a cumulative count of events dropped because the
// channel was full when published.
type Subscription struct {
	events chan Event
	lagged atomic.Int64
}

// Events returns the channel to receive published events from.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Lagged returns the cumulative number of events this subscriber has
// missed due to falling behind capacity.
func (s *Subscription) Lagged() int64 {
	return s.lagged.Load()
}

// Bus is a broadcast event bus. The zero value is not usable; use New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*Subscription
	nextID      int
	capacity    int
}

// New creates a bus with DefaultCapacity per-subscriber buffering.
func New() *Bus {
	return WithCapacity(DefaultCapacity)
}

// WithCapacity creates a bus with the given per-subscriber buffer size.
func WithCapacity(capacity int) *Bus {
	return &Bus{
		subscribers: make(map[int]*Subscription),
		capacity:    capacity,
	}
}

// Subscribe registers a new subscriber and returns its handle. Call
// Unsubscribe when the caller is done to release the channel.
func (b *Bus) Subscribe() (*Subscription, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &Subscription{events: make(chan Event, b.capacity)}
	b.subscribers[id] = sub
	return sub, id
}

// Unsubscribe removes a subscriber so it stops receiving events.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.events)
		delete(b.subscribers, id)
	}
}

// EmitDoc publishes a document event to every current subscriber.
func (b *Bus) EmitDoc(ev DocEvent) {
	b.publish(Event{Kind: EventDoc, Doc: &ev})
}

// EmitFolder publishes a folder event to every current subscriber.
func (b *Bus) EmitFolder(ev FolderEvent) {
	b.publish(Event{Kind: EventFolder, Folder: &ev})
}

// publish fans ev out to every subscriber without blocking; a
// subscriber whose channel is full has the event dropped and its lag
// counter incremented instead.
func (b *Bus) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.events <- ev:
		default:
			sub.lagged.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
