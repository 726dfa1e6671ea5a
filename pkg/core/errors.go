package core

import "errors"

// ErrNoPosition is returned when an operation needs the entity position
// before one is known.
var ErrNoPosition = errors.New("entity position unknown")
