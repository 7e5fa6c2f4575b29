package handler

import (
	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// shutdownLevel is a graduated shutdown stage. The enum order is the
// monotonic escalation the spec requires: each level implies every
// effect of the levels before it.
type shutdownLevel int

const (
	levelServer shutdownLevel = iota
	levelUsers
	levelAdmin
	levelAll
)

func parseShutdownLevel(s string) (shutdownLevel, bool) {
	switch s {
	case "server":
		return levelServer, true
	case "users":
		return levelUsers, true
	case "admin":
		return levelAdmin, true
	case "all":
		return levelAll, true
	default:
		return 0, false
	}
}

// AdminConsole is the top-level administrator tool: graduated
// shutdown, account and ban management, and a view of live channels.
// Only an administrator's InsideMenu pushes it.
type AdminConsole struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
}

// NewAdminConsole constructs the administrator console for session,
// which must already carry an administrator Account.
func NewAdminConsole(ctx *Context, session *ConnSession) *AdminConsole {
	a := &AdminConsole{ctx: ctx, session: session}
	a.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"shutdown": {Func: a.doShutdown, Doc: "shutdown server|users|admin|all - graduated server shutdown"},
		"account":  {Func: a.doAccount, Doc: "account view|remove|edit <name?> - manage accounts"},
		"ban":      {Func: a.doBan, Doc: "ban view|add|remove <addr?> - manage the ban list"},
		"channels": {Func: a.doChannels, Doc: "channels - list currently live channels"},
	})
	return a
}

func (a *AdminConsole) Handle(conn *transport.Conn) (proto.Outcome, error) {
	return a.loop.Run(conn, "Admin:")
}

// doShutdown stops accepting new connections at every level, then
// forcibly disconnects progressively more of the currently connected
// population as the requested level escalates.
func (a *AdminConsole) doShutdown(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: shutdown server|users|admin|all")
	}
	level, ok := parseShutdownLevel(args[0])
	if !ok {
		return proto.Continue(), conn.Println("Try: shutdown server|users|admin|all")
	}

	a.ctx.Gate.StopAccepting()
	if err := conn.Println("No longer accepting new connections."); err != nil {
		return proto.Outcome{}, err
	}
	if level < levelUsers {
		return proto.Continue(), nil
	}

	self := a.session.Account.Name
	for _, name := range a.ctx.Accounts.Names() {
		if name == self {
			continue
		}
		acct, ok := a.ctx.Accounts.Get(name)
		if !ok || !acct.Online() {
			continue
		}
		if acct.Administrator && level < levelAdmin {
			continue
		}
		a.disconnect(self, acct)
	}

	if level >= levelAll {
		_ = conn.Println(self, "is shutting down your connection.")
		return proto.Outcome{}, transport.ErrDisconnect
	}
	return proto.Continue(), nil
}

// disconnect notifies and forcibly closes the live connection behind
// acct, if any. Closing makes the target's blocked read fail with
// transport.ErrDisconnect, which runs that connection's own Stack
// teardown in its own worker.
func (a *AdminConsole) disconnect(by string, acct *state.Account) {
	connID, online := acct.ConnID()
	if !online {
		return
	}
	c, ok := a.ctx.Conns.Lookup(connID)
	if !ok {
		return
	}
	_ = c.Println(by + " is shutting down your connection.")
	_ = c.Close()
}

func (a *AdminConsole) doAccount(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: account view|remove|edit <name?>")
	}
	switch args[0] {
	case "view":
		for _, name := range a.ctx.Accounts.Names() {
			if err := conn.Println(name); err != nil {
				return proto.Outcome{}, err
			}
		}
		return proto.Continue(), nil
	case "remove":
		if len(args) < 2 {
			return proto.Continue(), conn.Println("Try: account remove <name>")
		}
		if err := a.ctx.Accounts.Delete(args[1], a.ctx.Channels); err != nil {
			return proto.Continue(), conn.Println("No such account.")
		}
		return proto.Continue(), conn.Println(args[1], "removed.")
	case "edit":
		if len(args) < 2 {
			return proto.Continue(), conn.Println("Try: account edit <name>")
		}
		if !a.ctx.Accounts.Exists(args[1]) {
			return proto.Continue(), conn.Println("No such account.")
		}
		return proto.Push(NewAccountEditor(a.ctx, args[1])), nil
	default:
		return proto.Continue(), conn.Println("Try: account view|remove|edit <name?>")
	}
}

func (a *AdminConsole) doBan(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: ban view|add|remove <addr?>")
	}
	switch args[0] {
	case "view":
		for _, addr := range a.ctx.Bans.List() {
			if err := conn.Println(addr); err != nil {
				return proto.Outcome{}, err
			}
		}
		return proto.Continue(), nil
	case "add":
		if len(args) < 2 {
			return proto.Continue(), conn.Println("Try: ban add <addr>")
		}
		a.ctx.Bans.Add(args[1])
		return proto.Continue(), conn.Println(args[1], "banned.")
	case "remove":
		if len(args) < 2 {
			return proto.Continue(), conn.Println("Try: ban remove <addr>")
		}
		a.ctx.Bans.Remove(args[1])
		return proto.Continue(), conn.Println(args[1], "unbanned.")
	default:
		return proto.Continue(), conn.Println("Try: ban view|add|remove <addr?>")
	}
}

func (a *AdminConsole) doChannels(conn *transport.Conn, args []string) (proto.Outcome, error) {
	for _, name := range a.ctx.Channels.Names() {
		if err := conn.Println(name); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}
