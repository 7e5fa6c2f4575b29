package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
	"github.com/mitchellh/go-wordwrap"
)

// messageWrapWidth is the column at which inbox messages are
// word-wrapped when displayed, matching a typical terminal width.
const messageWrapWidth = 72

// MessageManager is the inbox sub-menu: read, send, delete, and show.
type MessageManager struct {
	ctx     *Context
	session *ConnSession
	loop    proto.CommandLoop
}

// NewMessageManager constructs the messages sub-menu for session.
func NewMessageManager(ctx *Context, session *ConnSession) *MessageManager {
	m := &MessageManager{ctx: ctx, session: session}
	m.loop = proto.NewCommandLoop(map[string]proto.Verb{
		"delete": {Func: m.doDelete, Doc: "delete all|<index>|read|unread|<name> - remove messages from your inbox"},
		"read":   {Func: m.doRead, Doc: "read <index> - read one message in full and mark it read"},
		"send":   {Func: m.doSend, Doc: "send <name> - compose and send a message to another user"},
		"show":   {Func: m.doShow, Doc: "show - list your inbox"},
	})
	return m
}

func (m *MessageManager) Handle(conn *transport.Conn) (proto.Outcome, error) {
	return m.loop.Run(conn, "Messages:")
}

func (m *MessageManager) doShow(conn *transport.Conn, args []string) (proto.Outcome, error) {
	messages := m.session.Account.Messages()
	if len(messages) == 0 {
		return proto.Continue(), conn.Println("Your inbox is empty.")
	}
	for i, msg := range messages {
		flag := " "
		if msg.New {
			flag = "*"
		}
		if err := conn.Println(fmt.Sprintf("%s %d. from %s: %s", flag, i, msg.Source, preview(msg.Text))); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}

func (m *MessageManager) doRead(conn *transport.Conn, args []string) (proto.Outcome, error) {
	i, ok := parseIndex(conn, args)
	if !ok {
		return proto.Continue(), conn.Println("Try: read <index>")
	}
	messages := m.session.Account.Messages()
	if i < 0 || i >= len(messages) {
		return proto.Continue(), conn.Println("No such message.")
	}
	msg := messages[i]
	if err := conn.Println("From:", msg.Source); err != nil {
		return proto.Outcome{}, err
	}
	if err := conn.Println(wordwrap.WrapString(msg.Text, messageWrapWidth)); err != nil {
		return proto.Outcome{}, err
	}
	_ = m.session.Account.MarkRead(i)
	return proto.Continue(), nil
}

// doDelete removes messages by index, by "all", by read/unread status,
// or by source name, matching the original message manager's
// find_message predicates.
func (m *MessageManager) doDelete(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: delete all|<index>|read|unread|<name>")
	}
	clue := args[0]

	if i, err := strconv.Atoi(clue); err == nil {
		if err := m.session.Account.DeleteMessage(i); err != nil {
			if err == state.ErrNoMessage {
				return proto.Continue(), conn.Println("No such message.")
			}
			return proto.Outcome{}, err
		}
		return proto.Continue(), conn.Println("Message deleted.")
	}

	var match func(state.Message) bool
	switch clue {
	case "all":
		match = func(state.Message) bool { return true }
	case "read":
		match = func(msg state.Message) bool { return !msg.New }
	case "unread":
		match = func(msg state.Message) bool { return msg.New }
	default:
		match = func(msg state.Message) bool { return msg.Source == clue }
	}

	before := len(m.session.Account.Messages())
	m.session.Account.DeleteMessages(func(msg state.Message) bool { return !match(msg) })
	deleted := before - len(m.session.Account.Messages())
	if deleted == 0 {
		return proto.Continue(), conn.Println("No matching messages.")
	}
	return proto.Continue(), conn.Println(fmt.Sprintf("%d message%s deleted.", deleted, plural(deleted)))
}

func (m *MessageManager) doSend(conn *transport.Conn, args []string) (proto.Outcome, error) {
	var name string
	var err error
	if len(args) >= 1 {
		name = args[0]
	} else {
		name, err = conn.Input("Destination:")
		if err != nil {
			return proto.Outcome{}, err
		}
	}
	if name == m.session.Account.Name {
		return proto.Continue(), conn.Println("You are not allowed to talk to yourself.")
	}
	if _, ok := m.ctx.Accounts.Get(name); !ok {
		return proto.Continue(), conn.Println("Account does not exist.")
	}

	text, err := m.composeMessage(conn)
	if err != nil {
		return proto.Outcome{}, err
	}
	if text == "" {
		return proto.Continue(), conn.Println("Empty messages may not be sent.")
	}

	if err := state.DeliverMessage(m.ctx.Accounts, m.ctx.Conns, m.session.Account.Name, name, text); err != nil {
		return proto.Continue(), conn.Println(name, "was removed while you were writing.")
	}
	return proto.Continue(), conn.Println("Message has been delivered.")
}

// composeMessage reads free-form paragraph input terminated by two
// consecutive blank lines, matching MessageManager.get_message.
func (m *MessageManager) composeMessage(conn *transport.Conn) (string, error) {
	if err := conn.Println("Please compose your message."); err != nil {
		return "", err
	}
	if err := conn.Println("Enter 2 blank lines to send."); err != nil {
		return "", err
	}
	if err := conn.Println(strings.Repeat("=", 70)); err != nil {
		return "", err
	}

	var lines []string
	for len(lines) < 2 || lines[len(lines)-1] != "" || lines[len(lines)-2] != "" {
		line, err := conn.Input("")
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	if err := conn.Println(strings.Repeat("=", 70)); err != nil {
		return "", err
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) < 2 {
		return "", nil
	}
	return strings.Join(lines[:len(lines)-2], "\n")
}

func parseIndex(conn *transport.Conn, args []string) (int, bool) {
	if len(args) < 1 {
		return 0, false
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return i, true
}

func preview(text string) string {
	const limit = 40
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

