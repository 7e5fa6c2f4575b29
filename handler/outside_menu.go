package handler

import (
	"strings"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

const welcomeBanner = `
*******************************************
*          Welcome to Confabulator        *
*   A multi-user text chat server.        *
*   Type 'login' or 'register' to begin.  *
*******************************************`

const termsOfService = `
-----------------------------------------------------------
Terms of Service

By registering an account on this server you agree to use it
responsibly: no harassment, no spamming, no impersonation.
Administrators may remove accounts and ban addresses that
violate these terms at their discretion.
-----------------------------------------------------------
Do you agree? (yes/no)`

const openSourceBanner = `
This server's source is available from the project maintainers.
Ask an administrator for the repository location.`

// OutsideMenu is the pre-login handler: login, register, and
// (optionally) open_source.
type OutsideMenu struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
	greeted bool
}

// NewOutsideMenu constructs the pre-login menu for one connection.
func NewOutsideMenu(ctx *Context, session *ConnSession) *OutsideMenu {
	m := &OutsideMenu{ctx: ctx, session: session}
	m.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"login":       {Func: m.doLogin, Doc: "login <name> <password> - sign in to an existing account"},
		"register":    {Func: m.doRegister, Doc: "register <name> <password> - create a new account"},
		"open_source": {Func: m.doOpenSource, Doc: "open_source - show where to find this server's source code"},
	})
	return m
}

func (m *OutsideMenu) Handle(conn *transport.Conn) (proto.Outcome, error) {
	if !m.greeted {
		if err := conn.Println(welcomeBanner); err != nil {
			return proto.Outcome{}, err
		}
		m.greeted = true
	}
	return m.loop.Run(conn, "Command:")
}

func (m *OutsideMenu) doLogin(conn *transport.Conn, args []string) (proto.Outcome, error) {
	name, err := fieldOrPrompt(conn, args, 0, "Name: ")
	if err != nil {
		return proto.Outcome{}, err
	}
	password, err := fieldOrPrompt(conn, args, 1, "Password: ")
	if err != nil {
		return proto.Outcome{}, err
	}

	acct, ok := m.ctx.Accounts.Get(name)
	if !ok || !acct.CheckPassword(password) {
		return proto.Continue(), conn.Println("Login failed.")
	}
	if err := acct.SetOnline(m.session.ID); err != nil {
		return proto.Continue(), conn.Println("That account is already online.")
	}
	m.ctx.Conns.Register(m.session.ID, conn)
	m.session.Account = acct
	return proto.Push(NewInsideMenu(m.ctx, m.session)), nil
}

func (m *OutsideMenu) doRegister(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if err := conn.Println(termsOfService); err != nil {
		return proto.Outcome{}, err
	}
	answer, err := conn.Input("")
	if err != nil {
		return proto.Outcome{}, err
	}
	if !proto.IsYes(answer) {
		return proto.Continue(), conn.Println("You must agree to the terms of service to register.")
	}

	name, err := fieldOrPrompt(conn, args, 0, "Choose a name: ")
	if err != nil {
		return proto.Outcome{}, err
	}
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return proto.Continue(), conn.Println("Name may not be empty or contain whitespace.")
	}
	password, err := fieldOrPrompt(conn, args, 1, "Choose a password: ")
	if err != nil {
		return proto.Outcome{}, err
	}
	if password == "" || strings.ContainsAny(password, " \t\r\n") {
		return proto.Continue(), conn.Println("Password may not be empty or contain whitespace.")
	}

	acct, err := m.ctx.Accounts.Create(name, password)
	if err != nil {
		return proto.Continue(), conn.Println("That name is already taken.")
	}
	if err := acct.SetOnline(m.session.ID); err != nil {
		return proto.Outcome{}, err
	}
	m.ctx.Conns.Register(m.session.ID, conn)
	m.session.Account = acct
	return proto.Push(NewInsideMenu(m.ctx, m.session)), nil
}

func (m *OutsideMenu) doOpenSource(conn *transport.Conn, args []string) (proto.Outcome, error) {
	answer, err := conn.Input("Show source location? (yes/no) ")
	if err != nil {
		return proto.Outcome{}, err
	}
	if !proto.IsYes(answer) {
		return proto.Continue(), nil
	}
	return proto.Continue(), conn.Println(openSourceBanner)
}

// fieldOrPrompt returns args[i] if present, otherwise prompts for it
// interactively.
func fieldOrPrompt(conn *transport.Conn, args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	return conn.Input(prompt)
}
