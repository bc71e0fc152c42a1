package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_WireFormat(t *testing.T) {
	ts := Timestamp{Seconds: 1700000000, Nanos: 250000000}

	data, err := json.Marshal(MessageDoc{Msg: "hi", CreatedAt: ts, UID: "u"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"msg":"hi","createdAt":{"seconds":1700000000,"nanos":250000000},"uid":"u"}`
	if string(data) != want {
		t.Fatalf("unexpected wire form:\n got %s\nwant %s", data, want)
	}

	var md MessageDoc
	if err := json.Unmarshal(data, &md); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if md.CreatedAt != ts {
		t.Fatalf("timestamp did not round trip: %+v", md.CreatedAt)
	}
}

func TestTimestamp_FromTimeRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 45, 123456789, time.UTC)

	ts := FromTime(now)
	if ts.Seconds != now.Unix() || ts.Nanos != 123456789 {
		t.Fatalf("unexpected conversion %+v", ts)
	}
	if !ts.Time().Equal(now) {
		t.Fatalf("round trip lost precision: %v != %v", ts.Time(), now)
	}
}

func TestTimestamp_Before(t *testing.T) {
	tests := []struct {
		name string
		a, b Timestamp
		want bool
	}{
		{"earlier seconds", Timestamp{1, 999}, Timestamp{2, 0}, true},
		{"same seconds earlier nanos", Timestamp{1, 1}, Timestamp{1, 2}, true},
		{"equal", Timestamp{1, 1}, Timestamp{1, 1}, false},
		{"later", Timestamp{2, 0}, Timestamp{1, 999}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Fatalf("Before(%+v, %+v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSubscription_PushCoalescesToLatest(t *testing.T) {
	sub := NewSubscription(nil)

	sub.Push([]Document{{Seq: 1}})
	sub.Push([]Document{{Seq: 1}, {Seq: 2}})

	snapshot := <-sub.Snapshots()
	if len(snapshot) != 2 {
		t.Fatalf("expected the latest window, got %d entries", len(snapshot))
	}

	sub.Close()
	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("expected snapshots channel closed after Close")
	}
	if sub.Err() != nil {
		t.Fatalf("expected clean close, got %v", sub.Err())
	}
}

func TestSubscription_FailSurfacesError(t *testing.T) {
	released := false
	sub := NewSubscription(func(*Subscription) { released = true })

	sub.Fail(ErrNotFound)

	if _, ok := <-sub.Snapshots(); ok {
		t.Fatal("expected snapshots channel closed after Fail")
	}
	if sub.Err() != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", sub.Err())
	}
	if !released {
		t.Fatal("expected release callback to run")
	}

	// Pushes after termination are ignored.
	sub.Push([]Document{{Seq: 9}})
}