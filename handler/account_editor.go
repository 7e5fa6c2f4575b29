package handler

import (
	"fmt"
	"strconv"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// AccountEditor is the administrator's view onto one specific
// account: inspect and change its privilege, password, and mercy
// counter, and browse its contacts and messages.
type AccountEditor struct {
	ctx  *Context
	name string
	loop proto.CommandLoop
}

// NewAccountEditor opens an editing session for the account named
// name, which must already exist.
func NewAccountEditor(ctx *Context, name string) *AccountEditor {
	e := &AccountEditor{ctx: ctx, name: name}
	e.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"info":     {Func: e.doInfo, Doc: "info - summarize this account"},
		"admin":    {Func: e.doAdmin, Doc: "admin true|false - change administrator status"},
		"password": {Func: e.doPassword, Doc: "password <new> - reset this account's password"},
		"forgiven": {Func: e.doForgiven, Doc: "forgiven <n> - raise the unauthorized-admin-attempt counter to n (a lower n leaves it unchanged)"},
		"contacts": {Func: e.doContacts, Doc: "contacts - list this account's contacts"},
		"messages": {Func: e.doMessages, Doc: "messages - list this account's inbox"},
	})
	return e
}

func (e *AccountEditor) Handle(conn *transport.Conn) (proto.Outcome, error) {
	return e.loop.Run(conn, "Edit("+e.name+"):")
}

func (e *AccountEditor) doInfo(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	online := "offline"
	if acct.Online() {
		online = "online"
	}
	lines := []string{
		fmt.Sprintf("Name: %s", acct.Name),
		fmt.Sprintf("Administrator: %t", acct.Administrator),
		fmt.Sprintf("Status: %s", online),
		fmt.Sprintf("Forgiven: %d", acct.Forgiven()),
		fmt.Sprintf("Contacts: %d", len(acct.Contacts())),
		fmt.Sprintf("Messages: %d (%d unread)", len(acct.Messages()), acct.UnreadCount()),
	}
	for _, l := range lines {
		if err := conn.Println(l); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}

func (e *AccountEditor) doAdmin(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: admin true|false")
	}
	acct.Administrator = proto.IsYes(args[0])
	return proto.Continue(), conn.Println("Updated.")
}

func (e *AccountEditor) doPassword(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: password <new>")
	}
	acct.SetPassword(args[0])
	return proto.Continue(), conn.Println("Password reset.")
}

func (e *AccountEditor) doForgiven(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: forgiven <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return proto.Continue(), conn.Println("Try: forgiven <n>")
	}
	for acct.Forgiven() < n {
		acct.IncrementForgiven()
	}
	return proto.Continue(), conn.Println("Updated.")
}

func (e *AccountEditor) doContacts(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	for _, c := range acct.Contacts() {
		if err := conn.Println(c); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}

func (e *AccountEditor) doMessages(conn *transport.Conn, args []string) (proto.Outcome, error) {
	acct, ok := e.ctx.Accounts.Get(e.name)
	if !ok {
		return proto.Pop(), conn.Println("That account no longer exists.")
	}
	for i, m := range acct.Messages() {
		if err := conn.Println(fmt.Sprintf("%d. from %s: %s", i, m.Source, m.Text)); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}
