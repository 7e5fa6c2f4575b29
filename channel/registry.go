package channel

import (
	"sync"

	"github.com/blastus/confabulator/state"
)

// Registry is the name -> Room directory with stable numeric IDs,
// corresponding to InsideMenu's static channel-name table in the
// original design.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	nextID int

	accounts      *state.AccountRegistry
	conns         *state.ConnTable
	builtinLimit  int
	defaultReplay int
}

// NewRegistry returns an empty channel registry. accounts and conns
// are shared with the rest of the server so rooms can deliver
// invitations, whispers-as-inbox-fallback, and privilege checks.
func NewRegistry(accounts *state.AccountRegistry, conns *state.ConnTable, builtinLimit, defaultReplay int) *Registry {
	return &Registry{
		rooms:         make(map[string]*Room),
		accounts:      accounts,
		conns:         conns,
		builtinLimit:  builtinLimit,
		defaultReplay: defaultReplay,
	}
}

// Open returns the room named name, creating it (in StateStart) if it
// doesn't already exist.
func (reg *Registry) Open(name string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[name]; ok {
		return r
	}
	reg.nextID++
	r := newRoom(reg.nextID, name, reg.accounts, reg.conns, reg.builtinLimit, reg.defaultReplay)
	r.registry = reg
	reg.rooms[name] = r
	return r
}

// Names returns the names of every currently registered (non-deleted)
// room.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, 0, len(reg.rooms))
	for name := range reg.rooms {
		out = append(out, name)
	}
	return out
}

// unregister drops name from the registry. The Room object itself is
// left untouched so already-connected clients keep their reference
// and history.
func (reg *Registry) unregister(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, name)
}

// rename moves a room from oldName to newName. It fails with
// ErrNameTaken if newName is already registered.
func (reg *Registry) rename(oldName, newName string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[newName]; ok {
		return ErrNameTaken
	}
	r, ok := reg.rooms[oldName]
	if !ok {
		return ErrNotFound
	}
	delete(reg.rooms, oldName)
	reg.rooms[newName] = r
	return nil
}

// RemoveName implements state.ChannelCleaner: it scrubs name from
// every room's ban and mute lists after an account is deleted.
func (reg *Registry) RemoveName(name string) {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	for _, r := range rooms {
		r.removeBanAndMute(name)
	}
}
