package upstream

import "errors"

var (
	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// non-200 responses, undecodable bodies).
	ErrNetwork = errors.New("network error")
)
