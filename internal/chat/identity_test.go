package chat

import (
	"errors"
	"testing"
)

func TestResolveRoomKey_Scenario(t *testing.T) {
	key, err := ResolveRoomKey("42", "A", "B")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if key != "42&A&B" {
		t.Fatalf("expected key 42&A&B, got %q", key)
	}

	if got := RoomPath(key); got != "rooms/42&A&B" {
		t.Fatalf("unexpected room path %q", got)
	}
	if got := MessagesPath(key); got != "rooms/42&A&B/messages" {
		t.Fatalf("unexpected messages path %q", got)
	}
}

func TestResolveRoomKey_Deterministic(t *testing.T) {
	first, err := ResolveRoomKey("svc", "creator", "owner")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	second, err := ResolveRoomKey("svc", "creator", "owner")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if first != second {
		t.Fatalf("same tuple resolved to %q and %q", first, second)
	}
}

func TestResolveRoomKey_DistinctTuplesNeverCollide(t *testing.T) {
	tuples := [][3]string{
		{"1", "a", "bc"},
		{"1", "ab", "c"},
		{"1a", "b", "c"},
		{"1", "a", "b"},
		{"a", "1", "b"},
	}

	seen := make(map[string][3]string)
	for _, tuple := range tuples {
		key, err := ResolveRoomKey(tuple[0], tuple[1], tuple[2])
		if err != nil {
			t.Fatalf("resolve %v: %v", tuple, err)
		}
		if prev, ok := seen[key]; ok {
			t.Fatalf("tuples %v and %v collide on %q", prev, tuple, key)
		}
		seen[key] = tuple
	}
}

func TestResolveRoomKey_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		service string
		creator string
		owner   string
	}{
		{"empty service", "", "a", "b"},
		{"empty creator", "1", "", "b"},
		{"empty owner", "1", "a", ""},
		{"delimiter in service", "1&2", "a", "b"},
		{"delimiter in creator", "1", "a&b", "c"},
		{"delimiter in owner", "1", "a", "b&c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResolveRoomKey(tt.service, tt.creator, tt.owner); !errors.Is(err, ErrInvalidIdentity) {
				t.Fatalf("expected ErrInvalidIdentity, got %v", err)
			}
		})
	}
}
