package handler

import (
	"errors"
	"fmt"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// Stack is the per-connection scheduler: a non-empty LIFO stack of
// handlers. It is the control-flow core of the server - every
// interactive subsystem is just a handler pushed onto it that
// eventually pops.
type Stack struct {
	ctx     *Context
	session *ConnSession
	frames  []proto.Handler
}

// NewStack seeds a stack with its first frame, typically a BanFilter.
func NewStack(ctx *Context, session *ConnSession, initial proto.Handler) *Stack {
	return &Stack{ctx: ctx, session: session, frames: []proto.Handler{initial}}
}

// Run drives the stack to completion: repeatedly invoking the top
// frame's Handle until the stack empties or the connection
// disconnects. Teardown - clearing the session's online account and
// connection-table entry - always runs, regardless of exit path.
func (s *Stack) Run(conn *transport.Conn) {
	defer s.teardown()

	for len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		out, err := top.Handle(conn)
		if err != nil {
			if errors.Is(err, transport.ErrDisconnect) {
				return
			}
			s.reportCrash(conn, err)
			return
		}

		switch out.Kind {
		case proto.KindPush:
			s.frames = append(s.frames, out.Next)
		default:
			s.frames = s.frames[:len(s.frames)-1]
		}
	}
}

// reportCrash implements the "unexpected programming error" error
// kind: print a visible banner to the client, then unwind the
// connection. Printing failures are swallowed - the connection is
// already on its way out.
func (s *Stack) reportCrash(conn *transport.Conn, err error) {
	if s.ctx.Cfg.FailFast {
		panic(err)
	}
	if s.ctx.Logger != nil {
		s.ctx.Logger.Error("handler error", "err", err)
	}
	_ = conn.Println("*** An internal error occurred. Disconnecting. ***")
	_ = conn.Println(fmt.Sprintf("%v", err))
}

func (s *Stack) teardown() {
	if s.session.Account != nil {
		s.session.Account.SetOffline()
		s.session.Account = nil
	}
	if s.ctx.Conns != nil {
		s.ctx.Conns.Remove(s.session.ID)
	}
}
