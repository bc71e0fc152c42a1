package chat

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidIdentity = "invalid_identity"
	ErrCodeRoomInitFailed  = "room_init_failed"
	ErrCodeFeedError       = "feed_error"
	ErrCodeEmptyMessage    = "empty_message"
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeSubmitFailed    = "submit_failed"
)

var (
	// ErrInvalidIdentity rejects a malformed identity tuple before any I/O.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrEmptyMessage rejects a submission with no text.
	ErrEmptyMessage = errors.New("empty message")
	// ErrUnauthenticated rejects a submission without a session identity.
	ErrUnauthenticated = errors.New("no session identity")
)

// ChatError wraps a storage failure with a stable code.
type ChatError struct {
	Code    string
	Message string
	Err     error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

func chatError(code, msg string, err error) *ChatError {
	return &ChatError{Code: code, Message: msg, Err: err}
}

// CodeOf maps any error produced by this package to its error code.
// Unknown errors map to the empty string.
func CodeOf(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	switch {
	case errors.Is(err, ErrInvalidIdentity):
		return ErrCodeInvalidIdentity
	case errors.Is(err, ErrEmptyMessage):
		return ErrCodeEmptyMessage
	case errors.Is(err, ErrUnauthenticated):
		return ErrCodeUnauthenticated
	}
	return ""
}
