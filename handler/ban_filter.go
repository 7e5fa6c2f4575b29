package handler

import (
	"net"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// BanFilter is the first frame pushed for every accepted connection.
// It resolves the peer's address (and any reverse-DNS aliases) and
// rejects it if any form matches the ban list; otherwise it hands off
// to OutsideMenu. It is one-shot: a defensive second call (which
// should never legitimately happen) just closes the connection.
type BanFilter struct {
	ctx     *Context
	session *ConnSession
	passed  bool
}

// NewBanFilter constructs the entry frame for a fresh connection.
func NewBanFilter(ctx *Context, session *ConnSession) *BanFilter {
	return &BanFilter{ctx: ctx, session: session}
}

func (b *BanFilter) Handle(conn *transport.Conn) (proto.Outcome, error) {
	if b.passed {
		_ = conn.Println("Disconnecting...")
		return proto.Outcome{}, transport.ErrDisconnect
	}

	addr := conn.RemoteAddr()
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	candidates := []string{addr, host}
	if names, err := net.LookupAddr(host); err == nil {
		candidates = append(candidates, names...)
	}
	if b.ctx.Bans.Contains(candidates...) {
		_ = conn.Println("You have been banned from this server.")
		return proto.Outcome{}, transport.ErrDisconnect
	}

	b.passed = true
	return proto.Push(NewOutsideMenu(b.ctx, b.session)), nil
}
