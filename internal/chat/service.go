package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsync-server/internal/store"
)

// DefaultWindowSize is the number of recent messages a feed delivers.
const DefaultWindowSize = 25

// Service is the synchronization core for two-party conversations: it
// establishes room records, appends messages, and opens live feeds, all
// against the storage collaborator.
type Service struct {
	store store.Store
	log   *zerolog.Logger
}

// NewService creates the synchronization service.
func NewService(st store.Store, logger *zerolog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// EnsureRoom makes sure the room record for key exists, creating it with the
// given members on first access. Idempotent: calling it on an existing room
// performs no write. Two concurrent first-openers may both observe absence
// and both write; the writes carry identical content, so the duplicate is a
// redundant no-op rather than a correctness hazard.
func (s *Service) EnsureRoom(ctx context.Context, key, creatorID, ownerID string) error {
	path := RoomPath(key)

	err := s.store.GetDocument(ctx, path, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return chatError(ErrCodeRoomInitFailed, "read room record", err)
	}

	doc := store.RoomDoc{Members: []string{creatorID, ownerID}}
	if err := s.store.SetDocument(ctx, path, doc); err != nil {
		return chatError(ErrCodeRoomInitFailed, "write room record", err)
	}

	s.log.Info().Str("room", key).Msg("room record created")
	return nil
}

// Submit appends a message authored by authorID to the room's collection
// with a server-clock timestamp. The local feed is not touched: the live
// subscription observes the write and redelivers the window, so there is no
// dual-write consistency to maintain. On failure the caller keeps the text
// for resubmission.
func (s *Service) Submit(ctx context.Context, key, authorID, text string) error {
	if authorID == "" {
		return ErrUnauthenticated
	}
	if text == "" {
		return ErrEmptyMessage
	}

	doc := store.MessageDoc{
		Msg:       text,
		CreatedAt: store.Now(),
		UID:       authorID,
	}
	if _, err := s.store.AddToCollection(ctx, MessagesPath(key), doc); err != nil {
		return chatError(ErrCodeSubmitFailed, "append message", err)
	}

	return nil
}

// SubscribeFeed opens a live feed over the room's most recent messages.
// windowSize <= 0 selects DefaultWindowSize. The caller must Close the feed
// when the conversation is no longer observed.
func (s *Service) SubscribeFeed(key string, windowSize int) (*Feed, error) {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	sub, err := s.store.Subscribe(MessagesPath(key), "createdAt", windowSize)
	if err != nil {
		return nil, chatError(ErrCodeFeedError, "subscribe messages", err)
	}

	return newFeed(key, sub, s.log), nil
}
