package channel

import (
	"strconv"
	"strings"

	"github.com/blastus/confabulator/plugin"
	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// Session represents one member's presence in a Room. It implements
// proto.Handler so the handler stack can push it directly; a Session
// is stateful across repeated Handle calls (e.g. after a nested
// ChannelAdmin frame pops back to it), remembering whether it has
// already authenticated so it does not replay the join sequence
// twice.
type Session struct {
	room   *Room
	name   string
	admin  bool
	connID string

	authenticated bool
}

// Handle implements proto.Handler.
func (s *Session) Handle(conn *transport.Conn) (proto.Outcome, error) {
	r := s.room

	if s.authenticated && r.isFinal() {
		_ = conn.Println("This channel no longer exists.")
		r.unregister(s.connID, s.name)
		return proto.Pop(), nil
	}

	if !s.authenticated {
		r.mu.Lock()
		st := r.state
		owner := r.owner
		r.mu.Unlock()

		switch st {
		case StateFinal:
			_ = conn.Println("This channel no longer exists.")
			return proto.Pop(), nil
		case StateSetup:
			_ = conn.Println(owner + " is setting up this channel.")
			return proto.Pop(), nil
		case StateStart:
			r.mu.Lock()
			r.owner = s.name
			r.state = StateSetup
			r.mu.Unlock()
			if err := s.runSetupWizard(conn); err != nil {
				return proto.Outcome{}, err
			}
			r.mu.Lock()
			r.state = StateReady
			r.mu.Unlock()
		case StateReset:
			if s.name != owner {
				_ = conn.Println(owner + " is setting up this channel.")
				return proto.Pop(), nil
			}
			r.mu.Lock()
			r.state = StateSetup
			r.mu.Unlock()
			if err := s.runSetupWizard(conn); err != nil {
				return proto.Outcome{}, err
			}
			r.mu.Lock()
			r.state = StateReady
			r.mu.Unlock()
		}

		if r.isBanned(s.name) {
			_ = conn.Println("You have been banned from this channel.")
			return proto.Pop(), nil
		}
		if err := s.authenticate(conn); err != nil {
			return proto.Outcome{}, err
		}
		if err := s.replay(conn); err != nil {
			return proto.Outcome{}, err
		}
		r.register(s.connID, s.name, conn)
		r.broadcast(s.name, Line{Source: EventSource, Text: s.name + " has joined the channel."}, false, false)
		if err := conn.Println("There are", strconv.Itoa(r.MemberCount()), "members connected."); err != nil {
			return proto.Outcome{}, err
		}
		s.authenticated = true
	}

	return s.messageLoop(conn)
}

func (s *Session) runSetupWizard(conn *transport.Conn) error {
	r := s.room

	pw, err := conn.Input("Password for this channel (blank for none): ")
	if err != nil {
		return err
	}
	pw = strings.TrimSpace(pw)

	bsRaw, err := conn.Input("Buffer size (blank for unlimited): ")
	if err != nil {
		return err
	}
	var bufSize *int
	if v, err := strconv.Atoi(strings.TrimSpace(bsRaw)); err == nil {
		bufSize = &v
	}

	rsRaw, err := conn.Input("Replay size (blank for default): ")
	if err != nil {
		return err
	}
	replaySize := r.defaultSize
	if v, err := strconv.Atoi(strings.TrimSpace(rsRaw)); err == nil {
		replaySize = &v
	}

	r.mu.Lock()
	r.password = pw
	r.bufSize = bufSize
	r.replay = replaySize
	r.mu.Unlock()
	return nil
}

func (s *Session) authenticate(conn *transport.Conn) error {
	r := s.room
	r.mu.Lock()
	pw := r.password
	skip := pw == "" || r.privileged(s.name, s.admin)
	r.mu.Unlock()
	if skip {
		return nil
	}
	attempt, err := conn.Input("Password to connect: ")
	if err != nil {
		return err
	}
	if attempt != pw {
		_ = conn.Println("Incorrect password.")
		return transport.ErrDisconnect
	}
	return nil
}

func (s *Session) replay(conn *transport.Conn) error {
	r := s.room
	r.mu.Lock()
	lines := make([]Line, len(r.buffer))
	copy(lines, r.buffer)
	n := r.replay
	r.mu.Unlock()

	if n != nil {
		if *n <= 0 {
			lines = nil
		} else if len(lines) > *n {
			lines = lines[len(lines)-*n:]
		}
	}
	for _, l := range lines {
		if err := conn.Println(l.Render()); err != nil {
			return err
		}
	}
	return nil
}

// messageLoop is the per-connection read loop once authenticated:
// plain lines are broadcast chat, lines beginning with ':' are room
// commands.
func (s *Session) messageLoop(conn *transport.Conn) (proto.Outcome, error) {
	r := s.room
	for {
		line, err := conn.Input("")
		if err != nil {
			r.unregister(s.connID, s.name)
			r.broadcast(s.name, Line{Source: EventSource, Text: s.name + " has left the channel."}, false, false)
			return proto.Outcome{}, err
		}

		if r.consumeKick(s.name) {
			_ = conn.Println("You have been kicked out of this channel.")
			r.unregister(s.connID, s.name)
			return proto.Pop(), nil
		}

		text := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(text, ":") {
			out, err := s.roomCommand(conn, text[1:])
			if err != nil {
				r.unregister(s.connID, s.name)
				return proto.Outcome{}, err
			}
			if out.Kind == proto.KindPush {
				return out, nil
			}
			if out.Kind != proto.KindContinue {
				r.unregister(s.connID, s.name)
				r.broadcast(s.name, Line{Source: EventSource, Text: s.name + " has left the channel."}, false, false)
				return out, nil
			}
			continue
		}

		r.broadcast(s.name, Line{Source: s.name, Text: text}, true, true)
	}
}

func (s *Session) roomCommand(conn *transport.Conn, rest string) (proto.Outcome, error) {
	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return proto.Continue(), nil
	}
	verb, args := tokens[0], tokens[1:]
	r := s.room

	switch verb {
	case "exit", "quit", "stop":
		return proto.Pop(), nil
	case "help":
		return proto.Continue(), conn.Println(
			"admin, ban add|del|list <name>, invite <name>, kick <name>, list, "+
				"mute add|del|list <name>, summary, whisper <name>, exit")
	case "admin":
		return s.doAdmin(conn)
	case "ban":
		return proto.Continue(), s.doBan(conn, args)
	case "invite":
		return proto.Continue(), s.doInvite(conn, args)
	case "kick":
		return proto.Continue(), s.doKick(conn, args)
	case "list":
		return proto.Continue(), s.doList(conn)
	case "mute":
		return proto.Continue(), s.doMute(conn, args)
	case "summary":
		return proto.Continue(), s.doSummary(conn)
	case "whisper":
		return proto.Continue(), s.doWhisper(conn, args)
	default:
		return proto.Continue(), conn.Println("Command not found!")
	}
}

func (s *Session) doAdmin(conn *transport.Conn) (proto.Outcome, error) {
	r := s.room
	r.adminMu.Lock()
	if r.adminLocked {
		holder := r.adminHolder
		r.adminMu.Unlock()
		return proto.Continue(), conn.Println(holder, "is already administering this channel.")
	}
	r.adminLocked = true
	r.adminHolder = s.name
	r.adminMu.Unlock()

	admin := &Admin{room: r, session: s}
	return proto.Push(admin), nil
}

func (s *Session) doBan(conn *transport.Conn, args []string) error {
	if !s.room.privileged(s.name, s.admin) {
		return conn.Println("Only administrators or channel owner may do that.")
	}
	if len(args) < 1 {
		return conn.Println("Try add, del, or list.")
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return conn.Println("Try add, del, or list.")
		}
		if err := s.room.addBan(args[1]); err != nil {
			return conn.Println(err.Error())
		}
		return conn.Println(args[1], "has been banned.")
	case "del":
		if len(args) < 2 {
			return conn.Println("Try add, del, or list.")
		}
		s.room.delBan(args[1])
		return conn.Println(args[1], "is no longer banned.")
	case "list":
		for _, n := range s.room.listBan() {
			if err := conn.Println(n); err != nil {
				return err
			}
		}
		return nil
	default:
		return conn.Println("Try add, del, or list.")
	}
}

func (s *Session) doInvite(conn *transport.Conn, args []string) error {
	if len(args) < 1 {
		return conn.Println("Try: invite <name>")
	}
	name, ok := s.room.Name()
	if !ok {
		return conn.Println("This channel no longer exists.")
	}
	text := s.name + " has invited you to channel " + name + "."
	if pw := s.room.passwordSnapshot(); pw != "" {
		text += "\n\nUse this to get in: '" + pw + "'"
	}
	if err := state.DeliverMessage(s.room.accounts, s.room.conns, s.name, args[0], text); err != nil {
		return conn.Println("No such account.")
	}
	return conn.Println("Invitation sent.")
}

func (s *Session) doKick(conn *transport.Conn, args []string) error {
	if !s.room.privileged(s.name, s.admin) {
		return conn.Println("Only administrators or channel owner may do that.")
	}
	if len(args) < 1 {
		return conn.Println("Try: kick <name>")
	}
	if err := s.room.kick(args[0]); err != nil {
		return conn.Println("No such member.")
	}
	return conn.Println(args[0], "will be kicked.")
}

func (s *Session) doList(conn *transport.Conn) error {
	s.room.mu.Lock()
	names := make([]string, 0, len(s.room.connIDNames))
	for _, n := range s.room.connIDNames {
		names = append(names, n)
	}
	s.room.mu.Unlock()
	for _, n := range names {
		if err := conn.Println(n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) doMute(conn *transport.Conn, args []string) error {
	if len(args) < 1 {
		return conn.Println("Try add, del, or list.")
	}
	switch args[0] {
	case "add":
		if len(args) < 2 {
			return conn.Println("Try add, del, or list.")
		}
		s.room.addMute(args[1], s.name)
		return conn.Println(args[1], "has been muted.")
	case "del":
		if len(args) < 2 {
			return conn.Println("Try add, del, or list.")
		}
		s.room.delMute(args[1], s.name)
		return conn.Println(args[1], "is no longer muted.")
	case "list":
		for _, n := range s.room.listMute(s.name) {
			if err := conn.Println(n); err != nil {
				return err
			}
		}
		return nil
	default:
		return conn.Println("Try add, del, or list.")
	}
}

func (s *Session) doWhisper(conn *transport.Conn, args []string) error {
	if len(args) < 2 {
		return conn.Println("Try: whisper <name> <message>")
	}
	target, text := args[0], strings.Join(args[1:], " ")
	r := s.room

	if connID, ok := r.connIDFor(target); ok && r.mayWhisper(s.name) {
		r.mu.Lock()
		c := r.connected[connID]
		r.mu.Unlock()
		return c.Println("(" + s.name + ") " + text)
	}
	name, _ := r.Name()
	if err := state.DeliverMessage(r.accounts, r.conns, s.name, target, "("+name+") "+text); err != nil {
		return conn.Println("No such account.")
	}
	return nil
}

// doSummary prints a Mark V Shaney jumbled summary of the room's
// history buffer, sized to a quarter of the buffer's length.
func (s *Session) doSummary(conn *transport.Conn) error {
	texts := s.room.BufferTexts()
	size := (len(texts) + 3) / 4
	summary := plugin.Summarize(texts, size)
	if len(summary) == 0 {
		return conn.Println("There is nothing worth summarizing.")
	}
	longest := 0
	for _, line := range summary {
		if len(line) > longest {
			longest = len(line)
		}
	}
	rule := strings.Repeat("~", longest)
	if err := conn.Println(rule); err != nil {
		return err
	}
	for _, line := range summary {
		if err := conn.Println(line); err != nil {
			return err
		}
	}
	return conn.Println(rule)
}

// passwordSnapshot returns the room's current password under lock.
func (r *Room) passwordSnapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.password
}
