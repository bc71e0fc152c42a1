package chat

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/chatsync-server/internal/store"
)

// Message is the domain model for a chat message as seen through the feed.
type Message struct {
	Text      string
	AuthorID  string
	CreatedAt store.Timestamp
	// Seq is the storage-assigned insertion order, the deterministic
	// tie-break between messages with equal CreatedAt.
	Seq int64
}

func decodeMessage(doc store.Document) (Message, error) {
	var md store.MessageDoc
	if err := json.Unmarshal(doc.Data, &md); err != nil {
		return Message{}, fmt.Errorf("decode message %d: %w", doc.Seq, err)
	}
	return Message{
		Text:      md.Msg,
		AuthorID:  md.UID,
		CreatedAt: md.CreatedAt,
		Seq:       doc.Seq,
	}, nil
}
