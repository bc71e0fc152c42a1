package chat

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/store"
)

// Feed is a live, ordered view of the most recent messages in a room. Every
// underlying mutation redelivers the whole current window, oldest first; the
// consumer replaces its view wholesale rather than applying deltas.
//
// The window is the most recent N messages: the storage query runs in
// descending timestamp order with a count limit and is reversed for
// delivery. Equal timestamps keep their insertion order.
type Feed struct {
	room    string
	sub     *store.Subscription
	updates chan []Message
	log     *zerolog.Logger

	err error
}

func newFeed(room string, sub *store.Subscription, logger *zerolog.Logger) *Feed {
	f := &Feed{
		room:    room,
		sub:     sub,
		updates: make(chan []Message, 1),
		log:     logger,
	}
	go f.run()
	return f
}

// Updates returns the channel of whole-window deliveries. The channel is
// closed when the feed terminates; check Err afterwards.
func (f *Feed) Updates() <-chan []Message {
	return f.updates
}

// Err returns the error that terminated the feed, or nil after a clean
// Close. Valid once Updates is closed.
func (f *Feed) Err() error {
	return f.err
}

// Close releases the feed and its storage subscription. Failing to call it
// leaks the live subscription for the life of the process.
func (f *Feed) Close() {
	f.sub.Close()
}

func (f *Feed) run() {
	for snapshot := range f.sub.Snapshots() {
		window := make([]Message, 0, len(snapshot))
		decodeFailed := false
		for _, doc := range snapshot {
			msg, err := decodeMessage(doc)
			if err != nil {
				f.err = chatError(ErrCodeFeedError, "decode feed window", err)
				f.sub.Close()
				decodeFailed = true
				break
			}
			window = append(window, msg)
		}
		if decodeFailed {
			break
		}
		f.deliver(window)
	}

	if f.err == nil {
		if err := f.sub.Err(); err != nil {
			f.err = chatError(ErrCodeFeedError, "feed subscription", err)
			f.log.Warn().Err(err).Str("room", f.room).Msg("feed terminated")
		}
	}
	close(f.updates)
}

// deliver pushes the window, replacing a stale undelivered one when the
// consumer lags. Only the run goroutine touches the channel's send side.
func (f *Feed) deliver(window []Message) {
	for {
		select {
		case f.updates <- window:
			return
		default:
			select {
			case <-f.updates:
			default:
			}
		}
	}
}
