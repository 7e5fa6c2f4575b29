package channel

import "github.com/blastus/confabulator/transport"

// register adds connID -> (name, conn) to the membership map.
func (r *Room) register(connID, name string, conn *transport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected[connID] = conn
	r.connIDNames[connID] = name
}

// unregister removes connID from membership and drains any kick mark
// still pending for name, so that no mark outlives the connection it
// targeted (a mark observed on a read turn is cleared earlier, by
// consumeKick).
func (r *Room) unregister(connID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connected, connID)
	delete(r.connIDNames, connID)
	delete(r.kicked, name)
}

// consumeKick reports whether name has a pending kick mark, and
// clears it.
func (r *Room) consumeKick(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kicked[name] > 0 {
		delete(r.kicked, name)
		return true
	}
	return false
}

// kick marks name for eviction on its next read turn. It fails with
// ErrUnknownMember if name is not currently connected.
func (r *Room) kick(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for _, n := range r.connIDNames {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return ErrUnknownMember
	}
	r.kicked[name]++
	return nil
}

// kickAll marks every currently connected member for eviction.
func (r *Room) kickAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.connIDNames {
		r.kicked[n]++
	}
}

// isBanned reports whether name is on the ban list.
func (r *Room) isBanned(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.banned[name]
}

// addBan bans name, implicitly kicking it if currently connected. It
// refuses to ban the owner or a global administrator.
func (r *Room) addBan(name string) error {
	r.mu.Lock()
	if r.isProtected(name) {
		r.mu.Unlock()
		return ErrProtected
	}
	r.banned[name] = true
	for _, n := range r.connIDNames {
		if n == name {
			r.kicked[name]++
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *Room) delBan(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.banned, name)
}

func (r *Room) listBan() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.banned))
	for n := range r.banned {
		out = append(out, n)
	}
	return out
}

// removeBanAndMute scrubs name from the ban list and from every
// muted-to-muter entry (as both target and muter), used when the
// account registry deletes an account entirely.
func (r *Room) removeBanAndMute(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.banned, name)
	delete(r.muters, name)
	for target, muters := range r.muters {
		delete(muters, name)
		if len(muters) == 0 {
			delete(r.muters, target)
		}
	}
}

// addMute records that viewer mutes target.
func (r *Room) addMute(target, viewer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muters[target] == nil {
		r.muters[target] = make(map[string]bool)
	}
	r.muters[target][viewer] = true
}

// delMute removes viewer's mute on target, dropping the entry
// entirely once no muter remains.
func (r *Room) delMute(target, viewer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if muters, ok := r.muters[target]; ok {
		delete(muters, viewer)
		if len(muters) == 0 {
			delete(r.muters, target)
		}
	}
}

func (r *Room) listMute(viewer string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for target, muters := range r.muters {
		if muters[viewer] {
			out = append(out, target)
		}
	}
	return out
}

// mayWhisper reports whether sender may whisper in real time: sender
// must not be in its own mute set, per the original implementation's
// whisper check (preserved verbatim,
// including its apparent quirk of consulting the sender's own muters
// rather than the target's view of the sender). It does not check
// whether any target is connected; doWhisper does that separately.
func (r *Room) mayWhisper(sender string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.muters[sender][sender]
}

// connIDFor returns the connID currently registered for name, if
// connected to this room.
func (r *Room) connIDFor(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.connIDNames {
		if n == name {
			return id, true
		}
	}
	return "", false
}
