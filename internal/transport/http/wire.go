package http

import "github.com/vovakirdan/chatsync-server/internal/store"

// Inbound is a frame from the client: a message submission.
type Inbound struct {
	Msg string `json:"msg"`
}

const (
	// OutboundTypeWindow delivers the whole current feed window.
	OutboundTypeWindow = "window"
	// OutboundTypeError reports a failure; transient errors keep the
	// connection open so the client can retry with the same input.
	OutboundTypeError = "error"
)

// Outbound is a frame to the client.
type Outbound struct {
	Type     string        `json:"type"`
	Messages []WireMessage `json:"messages,omitempty"`
	Error    *WireError    `json:"error,omitempty"`
}

// WireMessage mirrors the stored message shape plus its insertion sequence.
type WireMessage struct {
	Seq       int64           `json:"seq"`
	Msg       string          `json:"msg"`
	CreatedAt store.Timestamp `json:"createdAt"`
	UID       string          `json:"uid"`
}

// WireError carries the domain error code and a human-readable message.
type WireError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// ErrorResponse represents an error response body on REST endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
