package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrUnknownTaskAction is returned when a batch action is not create or update.
	ErrUnknownTaskAction = errors.New("unknown task action")
	// ErrInternal is returned when an internal invariant has been broken.
	ErrInternal = errors.New("internal error")
)
