// Package apperr holds the sentinel errors shared across the service.
// Repositories translate driver errors into these at the store boundary;
// handlers map them onto HTTP status codes.
package apperr

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrNotAMember      = errors.New("not a member")
	ErrLastAdmin       = errors.New("cannot remove the last admin")
	ErrMalformedID     = errors.New("malformed identifier")
	ErrTransport       = errors.New("transport error")
)
