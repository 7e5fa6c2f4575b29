package state

import "errors"

// Sentinel errors returned by the account and contact domain.
var (
	ErrDupUser       = errors.New("state: account already exists")
	ErrNoUser        = errors.New("state: no such account")
	ErrDupContact    = errors.New("state: contact already present")
	ErrNoContact     = errors.New("state: no such contact")
	ErrAlreadyOnline = errors.New("state: account already online")
	ErrBadPassword   = errors.New("state: password mismatch")
	ErrNoMessage     = errors.New("state: no such message")
)
