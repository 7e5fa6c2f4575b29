package channel

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// Errors returned by room operations.
var (
	ErrNotFound      = errors.New("channel: no such room")
	ErrNameTaken     = errors.New("channel: name already in use")
	ErrDeleted       = errors.New("channel: room has been deleted")
	ErrProtected     = errors.New("channel: cannot ban the owner or an administrator")
	ErrUnknownMember = errors.New("channel: no such member")
)

// State is one node of the room's lifecycle state machine:
// START -> SETUP -> READY <-> RESET -> FINAL.
type State int

const (
	StateStart State = iota
	StateSetup
	StateReady
	StateReset
	StateFinal
)

// Room is a named chat room: membership, a bounded history buffer,
// ban/mute/kick lists, and an admin takeover lock, all guarded by one
// mutex. Only the admin lock (adminMu) is orthogonal to it, matching the
// leaf-ordered lock hierarchy: room lock before admin lock.
type Room struct {
	ID int

	mu       sync.Mutex
	name     *string // nil once deleted; the Room itself lingers for connected clients
	owner    string
	password string
	buffer   []Line
	bufSize  *int // nil = unlimited
	replay   *int // nil = replay everything
	state    State

	connected   map[string]*transport.Conn // connID -> conn
	connIDNames map[string]string          // connID -> member name
	muters      map[string]map[string]bool // target name -> set of muter names
	kicked      map[string]int             // name -> pending kick count
	banned      map[string]bool

	adminMu     sync.Mutex
	adminLocked bool
	adminHolder string

	accounts     *state.AccountRegistry
	conns        *state.ConnTable
	builtinLimit int
	defaultSize  *int
	registry     *Registry
}

func newRoom(id int, name string, accounts *state.AccountRegistry, conns *state.ConnTable, builtinLimit, defaultReplay int) *Room {
	dr := defaultReplay
	return &Room{
		ID:           id,
		name:         &name,
		state:        StateStart,
		connected:    make(map[string]*transport.Conn),
		connIDNames:  make(map[string]string),
		muters:       make(map[string]map[string]bool),
		kicked:       make(map[string]int),
		banned:       make(map[string]bool),
		accounts:     accounts,
		conns:        conns,
		builtinLimit: builtinLimit,
		defaultSize:  &dr,
	}
}

// Name returns the room's current name and whether it still has one
// (a deleted room returns "", false while its object and history
// linger for already-connected clients).
func (r *Room) Name() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.name == nil {
		return "", false
	}
	return *r.name, true
}

// isFinal reports whether the room has transitioned to FINAL.
func (r *Room) isFinal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateFinal
}

// Owner returns the current owner name.
func (r *Room) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// MemberCount returns the number of currently connected members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected)
}

func (r *Room) capLocked() int {
	limit := r.builtinLimit
	if r.bufSize != nil && *r.bufSize < limit {
		limit = *r.bufSize
	}
	return limit
}

func (r *Room) appendLineLocked(line Line) {
	limit := r.capLocked()
	r.buffer = append(r.buffer, line)
	if limit >= 0 && len(r.buffer) > limit {
		r.buffer = r.buffer[len(r.buffer)-limit:]
	}
}

// BufferTexts returns a snapshot of every message text currently held
// in the room's history buffer, in order.
func (r *Room) BufferTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.buffer))
	for i, l := range r.buffer {
		out[i] = l.Text
	}
	return out
}

func (r *Room) privileged(name string, admin bool) bool {
	return admin || name == r.owner
}

// isProtected reports whether name may never be banned: the owner or
// a global administrator.
func (r *Room) isProtected(name string) bool {
	if name == r.owner {
		return true
	}
	return r.accounts.IsAdministrator(name)
}

// Connect creates a Session representing one member's presence in
// this room. Registration into the membership map happens once the
// session actually authenticates, not at Connect time.
func (r *Room) Connect(name string, admin bool) *Session {
	return &Session{
		room:   r,
		name:   name,
		admin:  admin,
		connID: uuid.NewString(),
	}
}

// broadcast appends line to the buffer (when buffered is true) and
// writes it to every connected recipient that isn't muting the
// sender and isn't the sender itself, unless echo is true.
func (r *Room) broadcast(senderName string, line Line, buffered, echo bool) {
	r.mu.Lock()
	if buffered {
		r.appendLineLocked(line)
	}
	type target struct {
		conn *transport.Conn
		name string
	}
	var recipients []target
	for id, conn := range r.connected {
		recvName := r.nameByConnIDLocked(id)
		if recvName == "" {
			continue
		}
		if recvName == senderName && !echo {
			continue
		}
		if r.muters[senderName][recvName] {
			continue
		}
		if r.kicked[recvName] > 0 {
			continue
		}
		recipients = append(recipients, target{conn: conn, name: recvName})
	}
	r.mu.Unlock()

	rendered := line.Render()
	for _, t := range recipients {
		_ = t.conn.Println(rendered)
	}
}

// nameByConnIDLocked resolves a connID to its owning session name.
// Must be called with r.mu held.
func (r *Room) nameByConnIDLocked(connID string) string {
	if n, ok := r.connIDNames[connID]; ok {
		return n
	}
	return ""
}
