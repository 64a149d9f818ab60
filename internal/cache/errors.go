package cache

import "errors"

// ErrUnavailable indicates the cache has no backing client configured.
var ErrUnavailable = errors.New("username cache unavailable")
