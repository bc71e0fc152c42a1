package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a document does not exist at the given path.
var ErrNotFound = errors.New("document not found")

// Timestamp is the server clock representation used for message ordering.
// It carries whole seconds plus sub-second precision and has a stable
// on-the-wire JSON form.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// Now builds a Timestamp from the local wall clock.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a time.Time into a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()),
	}
}

// Time converts the Timestamp back into a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos))
}

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Seconds != other.Seconds {
		return ts.Seconds < other.Seconds
	}
	return ts.Nanos < other.Nanos
}

// RoomDoc is the persisted shape of a room record.
type RoomDoc struct {
	Members []string `json:"members"`
}

// MessageDoc is the persisted shape of a single message.
// Field names are fixed for interop with existing stored data.
type MessageDoc struct {
	Msg       string    `json:"msg"`
	CreatedAt Timestamp `json:"createdAt"`
	UID       string    `json:"uid"`
}

// Document is a raw collection entry together with its storage-assigned
// insertion sequence. Seq is the deterministic tie-break for entries whose
// order field compares equal.
type Document struct {
	Seq  int64
	Data json.RawMessage
}

// DocumentStore handles path-keyed document persistence.
type DocumentStore interface {
	// GetDocument reads the document at path into out.
	// Returns ErrNotFound when no document exists at path.
	GetDocument(ctx context.Context, path string, out any) error

	// SetDocument writes value as the document at path, replacing any
	// previous content.
	SetDocument(ctx context.Context, path string, value any) error

	// AddToCollection appends value to the collection at path and returns
	// the assigned insertion sequence.
	AddToCollection(ctx context.Context, path string, value any) (int64, error)
}

// LiveQuerier registers live window queries over collections. Every append
// to a subscribed collection re-runs the window query and pushes the whole
// snapshot to the subscriber.
type LiveQuerier interface {
	// Subscribe opens a live query over the collection at path, ordered by
	// the named field, windowed to the most recent limit entries. The
	// initial snapshot is delivered without waiting for a mutation.
	Subscribe(path, orderBy string, limit int) (*Subscription, error)
}

// Store aggregates the storage interfaces the synchronization core consumes.
type Store interface {
	DocumentStore
	LiveQuerier

	// Close closes the underlying database connection.
	Close() error
}

// Subscription is a live window over a collection. Snapshots delivers whole
// windows oldest-first; the channel is closed when the subscription ends,
// after which Err reports the terminal error, if any.
type Subscription struct {
	snapshots chan []Document
	closed    chan struct{}
	release   func(*Subscription)

	mu  sync.Mutex // serializes Push against teardown
	err error
}

// NewSubscription builds a subscription whose teardown calls release.
// Intended for store implementations.
func NewSubscription(release func(*Subscription)) *Subscription {
	return &Subscription{
		snapshots: make(chan []Document, 1),
		closed:    make(chan struct{}),
		release:   release,
	}
}

// Snapshots returns the channel of whole-window deliveries.
func (s *Subscription) Snapshots() <-chan []Document {
	return s.snapshots
}

// Err returns the error that terminated the subscription, or nil.
func (s *Subscription) Err() error {
	select {
	case <-s.closed:
		return s.err
	default:
		return nil
	}
}

// Close releases the subscription and its resources. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.fail(nil)
}

// Push delivers a snapshot, coalescing to the latest window when the
// consumer lags.
func (s *Subscription) Push(snapshot []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return
	default:
	}
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
			// The consumer has not taken the previous window; it is
			// stale now, drop it in favor of the current one.
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}

// Fail terminates the subscription with err.
func (s *Subscription) Fail(err error) {
	s.fail(err)
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return
	default:
	}
	s.err = err
	close(s.closed)
	close(s.snapshots)
	s.mu.Unlock()

	if s.release != nil {
		s.release(s)
	}
}
