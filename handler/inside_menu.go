package handler

import (
	"fmt"
	"net"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// InsideMenu is the post-login hub: channels, contacts, inbox,
// account options, the math evaluators, and the gate into the
// administrator console.
type InsideMenu struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
	greeted bool
}

// NewInsideMenu constructs the post-login menu for a session that
// has just authenticated.
func NewInsideMenu(ctx *Context, session *ConnSession) *InsideMenu {
	m := &InsideMenu{ctx: ctx, session: session}
	m.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"admin":    {Func: m.doAdmin, Doc: "admin - open the administrator console"},
		"channel":  {Func: m.doChannel, Doc: "channel <name> - open or create a channel"},
		"contacts": {Func: m.doContacts, Doc: "contacts - manage your contact list"},
		"messages": {Func: m.doMessages, Doc: "messages - read, send, and delete inbox messages"},
		"options":  {Func: m.doOptions, Doc: "options - account settings"},
		"eval":     {Func: m.doEval, Doc: "eval old|new - open a math expression evaluator"},
	})
	return m
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (m *InsideMenu) Handle(conn *transport.Conn) (proto.Outcome, error) {
	if !m.greeted {
		acct := m.session.Account
		if acct.Administrator {
			if err := conn.Println("Welcome, administrator!"); err != nil {
				return proto.Outcome{}, err
			}
		}
		unread := acct.UnreadCount()
		if err := conn.Println(fmt.Sprintf("You have %d new message%s.", unread, plural(unread))); err != nil {
			return proto.Outcome{}, err
		}
		online, total := m.friendStats()
		verb := "is"
		if online != 1 {
			verb = "are"
		}
		msg := fmt.Sprintf("%d of your %d friend%s %s online.", online, total, plural(total), verb)
		if err := conn.Println(msg); err != nil {
			return proto.Outcome{}, err
		}
		m.greeted = true
	}

	out, err := m.loop.Run(conn, "Command:")
	if err == nil && out.Kind == proto.KindPop {
		m.logout()
	}
	return out, err
}

func (m *InsideMenu) logout() {
	if m.session.Account == nil {
		return
	}
	m.session.Account.SetOffline()
	m.ctx.Conns.Remove(m.session.ID)
	m.session.Account = nil
}

func (m *InsideMenu) friendStats() (online, total int) {
	for _, name := range m.session.Account.Contacts() {
		total++
		if m.ctx.Accounts.IsOnline(name) {
			online++
		}
	}
	return
}

func (m *InsideMenu) doAdmin(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct := m.session.Account
	if acct.Administrator {
		return proto.Push(NewAdminConsole(m.ctx, m.session)), nil
	}

	banNow := acct.Forgiven() >= m.ctx.Cfg.MercyLimit
	acct.IncrementForgiven()
	if err := conn.Println("You are not an administrator."); err != nil {
		return proto.Outcome{}, err
	}
	if banNow {
		host, _, err := net.SplitHostPort(conn.RemoteAddr())
		if err != nil {
			host = conn.RemoteAddr()
		}
		m.ctx.Bans.Add(host)
		_ = conn.Println("Too many unauthorized attempts. Your account has been banned and deleted.")
		name := acct.Name
		m.logout()
		_ = m.ctx.Accounts.Delete(name, m.ctx.Channels)
		return proto.Outcome{}, transport.ErrDisconnect
	}
	return proto.Pop(), nil
}

func (m *InsideMenu) doChannel(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: channel <name>")
	}
	room := m.ctx.Channels.Open(args[0])
	session := room.Connect(m.session.Account.Name, m.session.Account.Administrator)
	return proto.Push(session), nil
}

func (m *InsideMenu) doContacts(conn *transport.Conn, args []string) (proto.Outcome, error) {
	return proto.Push(NewContactManager(m.ctx, m.session)), nil
}

func (m *InsideMenu) doMessages(conn *transport.Conn, args []string) (proto.Outcome, error) {
	return proto.Push(NewMessageManager(m.ctx, m.session)), nil
}

func (m *InsideMenu) doOptions(conn *transport.Conn, args []string) (proto.Outcome, error) {
	return proto.Push(NewAccountOptions(m.ctx, m.session)), nil
}

func (m *InsideMenu) doEval(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: eval old|new")
	}
	switch args[0] {
	case "old":
		return proto.Push(newMathV1()), nil
	case "new":
		return proto.Push(newMathV2()), nil
	default:
		return proto.Continue(), conn.Println("Try: eval old|new")
	}
}
