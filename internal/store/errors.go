package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserLimitReached is returned when a registration is attempted
// while the single account slot is already taken.
var ErrUserLimitReached = errors.New("user limit reached")

// ErrEmailTaken is returned when a registration is attempted with an
// email that is already in use.
var ErrEmailTaken = errors.New("email already in use")
