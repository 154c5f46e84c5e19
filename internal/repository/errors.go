// Package repository contains the MySQL data access layer. Sentinel
// errors defined here are shared across repositories so that handlers
// can map failure scenarios to HTTP responses without inspecting
// driver-specific errors. For example, ErrForbidden indicates that the
// current user is not authorized to act on a resource owned by someone
// else, while ErrConflict signals that an operation cannot proceed due
// to the current state of dependent records (e.g. checking in a ticket
// that was already used).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as checking in an already-used ticket or
// deleting an event that has sold tickets. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")
