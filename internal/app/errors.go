package app

import "errors"

// Stage errors wrap everything that stops a command before any build step
// runs, so callers can map them to an exit status with errors.Is.
var (
	ErrLoad    = errors.New("failed to load formulae")
	ErrResolve = errors.New("failed to resolve packages")
)
