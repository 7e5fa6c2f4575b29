package handler

import (
	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// ContactManager lets a logged-in user maintain their contact list:
// add, remove, and show.
type ContactManager struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
}

// NewContactManager constructs the contacts sub-menu for session.
func NewContactManager(ctx *Context, session *ConnSession) *ContactManager {
	m := &ContactManager{ctx: ctx, session: session}
	m.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"add":    {Func: m.doAdd, Doc: "add <name> - add a contact"},
		"remove": {Func: m.doRemove, Doc: "remove <name> - remove a contact"},
		"show":   {Func: m.doShow, Doc: "show - list your contacts and whether they are online"},
	})
	return m
}

func (m *ContactManager) Handle(conn *transport.Conn) (proto.Outcome, error) {
	return m.loop.Run(conn, "Contacts:")
}

func (m *ContactManager) doAdd(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: add <name>")
	}
	name := args[0]
	if !m.ctx.Accounts.Exists(name) {
		return proto.Continue(), conn.Println("No such account.")
	}
	if name == m.session.Account.Name {
		return proto.Continue(), conn.Println("You cannot add yourself.")
	}
	if err := m.session.Account.AddContact(name); err != nil {
		if err == state.ErrDupContact {
			return proto.Continue(), conn.Println(name, "is already one of your contacts.")
		}
		return proto.Outcome{}, err
	}
	return proto.Continue(), conn.Println(name, "has been added to your contacts.")
}

func (m *ContactManager) doRemove(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: remove <name>")
	}
	name := args[0]
	if err := m.session.Account.RemoveContact(name); err != nil {
		if err == state.ErrNoContact {
			return proto.Continue(), conn.Println(name, "is not one of your contacts.")
		}
		return proto.Outcome{}, err
	}
	return proto.Continue(), conn.Println(name, "has been removed from your contacts.")
}

func (m *ContactManager) doShow(conn *transport.Conn, args []string) (proto.Outcome, error) {
	contacts := m.session.Account.Contacts()
	if len(contacts) == 0 {
		return proto.Continue(), conn.Println("You have no contacts.")
	}
	for _, name := range contacts {
		status := "offline"
		if m.ctx.Accounts.IsOnline(name) {
			status = "online"
		}
		if err := conn.Println(name, "-", status); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}
