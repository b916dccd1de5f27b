package crawler

import (
	"errors"
	"fmt"
)

// ErrNoData indicates no matching network response appeared within the poll
// budget. This is an expected outcome of the interception timing race, not a
// fault; callers drop the item and move on.
var ErrNoData = errors.New("no matching response within poll budget")

// ErrMalformedPayload indicates a decoded API payload was missing the fields
// the extractor needs. Callers treat it identically to ErrNoData.
var ErrMalformedPayload = errors.New("malformed api payload")

// ErrDuplicate indicates an insert hit an existing row for the same natural
// key. Non-fatal; the first writer wins and the insert is not retried.
var ErrDuplicate = errors.New("record already exists")

// SessionInitError wraps a failure to bootstrap a browser session. Fatal to
// the acquiring call only; the caller retries acquisition rather than
// crashing the pool.
type SessionInitError struct {
	Err error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("session init: %v", e.Err)
}

func (e *SessionInitError) Unwrap() error {
	return e.Err
}
