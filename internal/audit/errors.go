package audit

import "errors"

// Caller-visible failures. Anything else on the write path is absorbed,
// retried, and reported through Options.OnError.
var (
	// ErrClosed is returned by operations invoked after Shutdown.
	ErrClosed = errors.New("audit: logger closed")

	// ErrPayloadTooLarge is returned when details exceed the configured
	// serialized-size ceiling.
	ErrPayloadTooLarge = errors.New("audit: payload too large")

	// ErrEmptyKind is returned when the event kind is missing.
	ErrEmptyKind = errors.New("audit: empty event kind")
)
