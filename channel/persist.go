package channel

// Snapshot is the durable view of one Room, excluding every transient
// field (connected members, admin lock, state machine phase): enough
// to rebuild a room's configuration, ban list, and mute table across a
// restart.
type Snapshot struct {
	ID       int
	Name     string
	Owner    string
	Password string
	BufSize  *int
	Replay   *int
	Banned   []string
	Muted    map[string][]string // target name -> muter names
}

// Snapshot returns a durable snapshot of the room's configuration.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ""
	if r.name != nil {
		name = *r.name
	}

	banned := make([]string, 0, len(r.banned))
	for n := range r.banned {
		banned = append(banned, n)
	}

	muted := make(map[string][]string, len(r.muters))
	for target, muters := range r.muters {
		names := make([]string, 0, len(muters))
		for n := range muters {
			names = append(names, n)
		}
		muted[target] = names
	}

	return Snapshot{
		ID:       r.ID,
		Name:     name,
		Owner:    r.owner,
		Password: r.password,
		BufSize:  r.bufSize,
		Replay:   r.replay,
		Banned:   banned,
		Muted:    muted,
	}
}

// Snapshots returns a durable snapshot of every registered room.
func (reg *Registry) Snapshots() []Snapshot {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	return out
}

// Restore recreates a room from a snapshot taken by Snapshot, ready
// for members to reconnect; it is only ever called before the server
// starts accepting connections, so no room exists with snap.Name yet.
func (reg *Registry) Restore(snap Snapshot) {
	reg.mu.Lock()
	if snap.ID >= reg.nextID {
		reg.nextID = snap.ID + 1
	}
	r := newRoom(snap.ID, snap.Name, reg.accounts, reg.conns, reg.builtinLimit, reg.defaultReplay)
	r.registry = reg
	r.owner = snap.Owner
	r.password = snap.Password
	r.bufSize = snap.BufSize
	r.replay = snap.Replay
	r.state = StateReady
	for _, n := range snap.Banned {
		r.banned[n] = true
	}
	for target, muters := range snap.Muted {
		set := make(map[string]bool, len(muters))
		for _, m := range muters {
			set[m] = true
		}
		r.muters[target] = set
	}
	reg.rooms[snap.Name] = r
	reg.mu.Unlock()
}
