package handler

import (
	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// AccountOptions is the self-service settings sub-menu: change your
// own password, purge your own message history, or delete your own
// account outright.
type AccountOptions struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
}

// NewAccountOptions constructs the options sub-menu for session.
func NewAccountOptions(ctx *Context, session *ConnSession) *AccountOptions {
	m := &AccountOptions{ctx: ctx, session: session}
	m.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"password":       {Func: m.doPassword, Doc: "password <new> - change your password"},
		"purge":          {Func: m.doPurge, Doc: "purge - delete every message in your inbox"},
		"delete_account": {Func: m.doDeleteAccount, Doc: "delete_account - permanently delete your account"},
	})
	return m
}

func (m *AccountOptions) Handle(conn *transport.Conn) (proto.Outcome, error) {
	return m.loop.Run(conn, "Options:")
}

func (m *AccountOptions) doPassword(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: password <new>")
	}
	m.session.Account.SetPassword(args[0])
	return proto.Continue(), conn.Println("Password changed.")
}

func (m *AccountOptions) doPurge(conn *transport.Conn, args []string) (proto.Outcome, error) {
	m.session.Account.DeleteMessages(func(state.Message) bool { return false })
	return proto.Continue(), conn.Println("Inbox purged.")
}

func (m *AccountOptions) doDeleteAccount(conn *transport.Conn, args []string) (proto.Outcome, error) {
	answer, err := conn.Input("Are you sure you want to delete your account? (yes/no) ")
	if err != nil {
		return proto.Outcome{}, err
	}
	if !proto.IsYes(answer) {
		return proto.Continue(), conn.Println("Account not deleted.")
	}
	name := m.session.Account.Name
	m.session.Account.SetOffline()
	m.ctx.Conns.Remove(m.session.ID)
	m.session.Account = nil
	if err := m.ctx.Accounts.Delete(name, m.ctx.Channels); err != nil {
		return proto.Outcome{}, err
	}
	_ = conn.Println("Your account has been deleted. Goodbye.")
	return proto.Outcome{}, transport.ErrDisconnect
}
