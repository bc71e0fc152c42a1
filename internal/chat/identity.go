package chat

import (
	"fmt"
	"strings"
)

// keyDelimiter joins the three role identifiers into a room key. It is
// forbidden inside identifiers so that distinct tuples never collide.
const keyDelimiter = "&"

// ResolveRoomKey derives the deterministic room key for a conversation
// between a service's creator and its current owner. The same tuple always
// yields the same key; downstream code treats the key as opaque.
func ResolveRoomKey(serviceID, creatorID, ownerID string) (string, error) {
	for _, part := range []struct {
		name, value string
	}{
		{"service id", serviceID},
		{"creator id", creatorID},
		{"owner id", ownerID},
	} {
		if part.value == "" {
			return "", fmt.Errorf("%w: empty %s", ErrInvalidIdentity, part.name)
		}
		if strings.Contains(part.value, keyDelimiter) {
			return "", fmt.Errorf("%w: %s contains %q", ErrInvalidIdentity, part.name, keyDelimiter)
		}
	}

	return serviceID + keyDelimiter + creatorID + keyDelimiter + ownerID, nil
}

// RoomPath is the document path of the room record for key.
// The shape is fixed for interop with existing stored data.
func RoomPath(key string) string {
	return "rooms/" + key
}

// MessagesPath is the collection path of the room's messages for key.
func MessagesPath(key string) string {
	return RoomPath(key) + "/messages"
}
