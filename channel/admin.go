package channel

import (
	"strconv"
	"strings"

	"github.com/blastus/confabulator/proto"
	"github.com/blastus/confabulator/transport"
)

// Admin is the handler pushed when a member wins the try-acquire of a
// Room's admin lock via the ":admin" room command. It runs its own
// command loop; on exit (by any path) it releases the lock so the
// next taker can acquire it.
type Admin struct {
	room    *Room
	session *Session
	loop    proto.CommandLoop
}

func (a *Admin) verbs() map[string]proto.Verb {
	return map[string]proto.Verb{
		"buffer":   {Func: a.doBuffer, Doc: "buffer <n|unlimited> - set the history buffer size"},
		"close":    {Func: a.doClose, Doc: "close - kick every connected member"},
		"delete":   {Func: a.doDelete, Doc: "delete - unregister this channel's name"},
		"finalize": {Func: a.doFinalize, Doc: "finalize - delete, kick everyone, and retire this channel permanently"},
		"history":  {Func: a.doHistory, Doc: "history - print the full buffer"},
		"owner":    {Func: a.doOwner, Doc: "owner <name> - transfer ownership to an existing account"},
		"password": {Func: a.doPassword, Doc: "password set <pw>|unset - change or clear the channel password"},
		"purge":    {Func: a.doPurge, Doc: "purge - clear the history buffer"},
		"rename":   {Func: a.doRename, Doc: "rename <new> - rename this channel"},
		"replay":   {Func: a.doReplay, Doc: "replay <n|all> - set the replay size"},
		"reset":    {Func: a.doReset, Doc: "reset - kick everyone and restart the setup wizard for a new owner"},
		"settings": {Func: a.doSettings, Doc: "settings - print the current configuration"},
	}
}

// Handle implements proto.Handler.
func (a *Admin) Handle(conn *transport.Conn) (proto.Outcome, error) {
	a.loop = proto.NewCommandLoop(a.verbs())
	out, err := a.loop.Run(conn, "Admin:")

	a.room.adminMu.Lock()
	a.room.adminLocked = false
	a.room.adminHolder = ""
	a.room.adminMu.Unlock()

	if err != nil {
		return proto.Outcome{}, err
	}
	if out.Kind == proto.KindPush {
		return out, nil
	}
	return proto.Pop(), nil
}

func (a *Admin) doBuffer(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: buffer <n>|unlimited")
	}
	a.room.mu.Lock()
	defer a.room.mu.Unlock()
	if args[0] == "unlimited" {
		a.room.bufSize = nil
		return proto.Continue(), conn.Println("Buffer size set to unlimited.")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return proto.Continue(), conn.Println("Try: buffer <n>|unlimited")
	}
	a.room.bufSize = &n
	return proto.Continue(), conn.Println("Buffer size set.")
}

func (a *Admin) doClose(conn *transport.Conn, args []string) (proto.Outcome, error) {
	a.room.kickAll()
	return proto.Continue(), conn.Println("Every connected member will be kicked.")
}

func (a *Admin) doDelete(conn *transport.Conn, args []string) (proto.Outcome, error) {
	name, ok := a.room.Name()
	if !ok {
		return proto.Continue(), conn.Println("This channel has already been deleted.")
	}
	a.room.registry.unregister(name)
	a.room.mu.Lock()
	a.room.name = nil
	a.room.mu.Unlock()
	return proto.Continue(), conn.Println("Channel deleted. History is preserved for connected members.")
}

func (a *Admin) doFinalize(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if name, ok := a.room.Name(); ok {
		a.room.registry.unregister(name)
	}
	a.room.mu.Lock()
	a.room.name = nil
	a.room.state = StateFinal
	a.room.mu.Unlock()
	a.room.kickAll()
	_ = conn.Println("Channel finalized.")
	return proto.Pop(), nil
}

func (a *Admin) doHistory(conn *transport.Conn, args []string) (proto.Outcome, error) {
	a.room.mu.Lock()
	lines := make([]Line, len(a.room.buffer))
	copy(lines, a.room.buffer)
	a.room.mu.Unlock()
	for _, l := range lines {
		if err := conn.Println(l.Render()); err != nil {
			return proto.Outcome{}, err
		}
	}
	return proto.Continue(), nil
}

func (a *Admin) doOwner(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: owner <name>")
	}
	if !a.room.accounts.Exists(args[0]) {
		return proto.Continue(), conn.Println("No such account.")
	}
	a.room.mu.Lock()
	a.room.owner = args[0]
	a.room.mu.Unlock()
	return proto.Continue(), conn.Println("Ownership transferred to", args[0]+".")
}

func (a *Admin) doPassword(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: password set <pw>|unset")
	}
	switch args[0] {
	case "unset":
		a.room.mu.Lock()
		a.room.password = ""
		a.room.mu.Unlock()
		return proto.Continue(), conn.Println("Password cleared.")
	case "set":
		if len(args) < 2 {
			return proto.Continue(), conn.Println("Try: password set <pw>")
		}
		a.room.mu.Lock()
		a.room.password = args[1]
		a.room.mu.Unlock()
		return proto.Continue(), conn.Println("Password set.")
	default:
		return proto.Continue(), conn.Println("Try: password set <pw>|unset")
	}
}

func (a *Admin) doPurge(conn *transport.Conn, args []string) (proto.Outcome, error) {
	a.room.mu.Lock()
	a.room.buffer = nil
	a.room.mu.Unlock()
	return proto.Continue(), conn.Println("Buffer purged.")
}

func (a *Admin) doRename(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: rename <new>")
	}
	oldName, ok := a.room.Name()
	if !ok {
		return proto.Continue(), conn.Println("This channel has been deleted.")
	}
	newName := args[0]
	if err := a.room.registry.rename(oldName, newName); err != nil {
		return proto.Continue(), conn.Println(err.Error())
	}
	a.room.mu.Lock()
	a.room.name = &newName
	a.room.mu.Unlock()
	return proto.Continue(), conn.Println("Channel renamed to", args[0]+".")
}

func (a *Admin) doReplay(conn *transport.Conn, args []string) (proto.Outcome, error) {
	if len(args) < 1 {
		return proto.Continue(), conn.Println("Try: replay <n>|all")
	}
	a.room.mu.Lock()
	defer a.room.mu.Unlock()
	if args[0] == "all" {
		a.room.replay = nil
		return proto.Continue(), conn.Println("Replay size set to all.")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return proto.Continue(), conn.Println("Try: replay <n>|all")
	}
	a.room.replay = &n
	return proto.Continue(), conn.Println("Replay size set.")
}

func (a *Admin) doReset(conn *transport.Conn, args []string) (proto.Outcome, error) {
	a.room.kickAll()
	a.room.mu.Lock()
	a.room.state = StateReset
	a.room.owner = a.session.name
	a.room.buffer = nil
	a.room.password = ""
	a.room.mu.Unlock()
	return proto.Continue(), conn.Println("Channel reset. Reconnect to run setup again.")
}

func (a *Admin) doSettings(conn *transport.Conn, args []string) (proto.Outcome, error) {
	a.room.mu.Lock()
	defer a.room.mu.Unlock()
	var sb strings.Builder
	sb.WriteString("owner: " + a.room.owner)
	if a.room.password != "" {
		sb.WriteString(", password set")
	} else {
		sb.WriteString(", no password")
	}
	if a.room.bufSize != nil {
		sb.WriteString(", buffer_size=" + strconv.Itoa(*a.room.bufSize))
	} else {
		sb.WriteString(", buffer_size=unlimited")
	}
	if a.room.replay != nil {
		sb.WriteString(", replay_size=" + strconv.Itoa(*a.room.replay))
	} else {
		sb.WriteString(", replay_size=all")
	}
	return proto.Continue(), conn.Println(sb.String())
}
