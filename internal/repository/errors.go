// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNotFound indicates that a requested row does not exist,
// while ErrConflict signals that an operation cannot proceed because
// of existing dependent records (e.g. creating an identity with a
// duplicate email).
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they are not allowed to touch. Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update collides with
// existing state, such as a duplicate username or email. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
