package state

import (
	"strings"
	"sync"
)

// BanList is the server-wide set of banned IP addresses and
// hostnames, case-folded at every boundary.
type BanList struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewBanList returns an empty ban list.
func NewBanList() *BanList {
	return &BanList{set: make(map[string]struct{})}
}

// Contains reports whether any of the given addresses (an IP plus its
// resolved aliases, typically) matches an entry in the list.
func (b *BanList) Contains(addresses ...string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, addr := range addresses {
		if _, ok := b.set[strings.ToLower(addr)]; ok {
			return true
		}
	}
	return false
}

// Add inserts addr into the list.
func (b *BanList) Add(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set[strings.ToLower(addr)] = struct{}{}
}

// Remove deletes addr from the list, if present.
func (b *BanList) Remove(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.set, strings.ToLower(addr))
}

// List returns every banned address, unordered.
func (b *BanList) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.set))
	for addr := range b.set {
		out = append(out, addr)
	}
	return out
}
