package cache

import "errors"

// ErrInvalidKey is returned for keys that are empty, absolute or escape the
// cache root.
var ErrInvalidKey = errors.New("invalid cache key")
