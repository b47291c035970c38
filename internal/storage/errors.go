package storage

import "errors"

// ErrNotFound is returned when a requested row does not exist. It is a
// domain condition, not a persistence failure.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when registering an email that already has
// an account.
var ErrEmailTaken = errors.New("email already registered")

// PersistenceError marks a failure at the storage boundary. The
// calculation layer never produces errors, so callers can tell I/O
// failures apart from domain conditions with errors.As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
