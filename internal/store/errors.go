package store

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist.
// The service layer translates it into the client-facing error taxonomy.
var ErrNotFound = errors.New("store: not found")
