package handler

import "github.com/blastus/confabulator/state"

// ConnSession is the per-connection slot the spec calls the "current
// connection id" plus weak back-reference: one value shared by every
// handler pushed for a single TCP connection, carrying the connection
// identity and (once logged in) the Account it is acting as.
type ConnSession struct {
	ID      string
	Account *state.Account
}

// NewConnSession allocates a session for a freshly accepted
// connection, identified by id (typically a uuid minted by the
// server's accept loop).
func NewConnSession(id string) *ConnSession {
	return &ConnSession{ID: id}
}
