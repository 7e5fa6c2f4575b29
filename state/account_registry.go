package state

import (
	"sync"

	"github.com/blastus/confabulator/transport"
)

// ChannelCleaner is implemented by the channel registry so that
// AccountRegistry.Delete can scrub a deleted account's name from
// every room's ban and mute lists without the state package needing
// to import the channel package.
type ChannelCleaner interface {
	RemoveName(name string)
}

// AccountRegistry is the shared name -> Account map. It corresponds
// to OutsideMenu's static ACCOUNTS table in the original design,
// lifted into an explicit, lockable value passed through
// construction instead of living as process-global state.
type AccountRegistry struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewAccountRegistry returns an empty registry.
func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{accounts: make(map[string]*Account)}
}

// Exists reports whether name is registered.
func (r *AccountRegistry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[name]
	return ok
}

// Get returns the account named name, if any.
func (r *AccountRegistry) Get(name string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[name]
	return a, ok
}

// Count returns the number of registered accounts.
func (r *AccountRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Create registers a brand-new account. The very first account ever
// created is promoted to administrator. It fails with ErrDupUser if
// the name is already taken.
func (r *AccountRegistry) Create(name, password string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; ok {
		return nil, ErrDupUser
	}
	admin := len(r.accounts) == 0
	a := NewAccount(name, password, admin)
	r.accounts[name] = a
	return a, nil
}

// Restore registers an account rebuilt from a durable snapshot,
// preserving its administrator flag, forgiven counter, contacts, and
// messages exactly, bypassing Create's first-account promotion rule.
// It is only ever called during startup load, before the server
// begins accepting connections.
func (r *AccountRegistry) Restore(name, password string, administrator bool, forgiven int, contacts []string, messages []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[name] = restoreAccount(name, password, administrator, forgiven, contacts, messages)
}

// IsAdministrator reports whether name is a registered administrator.
func (r *AccountRegistry) IsAdministrator(name string) bool {
	a, ok := r.Get(name)
	return ok && a.Administrator
}

// IsOnline reports whether name is registered and currently online.
func (r *AccountRegistry) IsOnline(name string) bool {
	a, ok := r.Get(name)
	return ok && a.Online()
}

// Names returns every registered account name, unordered.
func (r *AccountRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		out = append(out, name)
	}
	return out
}

// Delete atomically removes name from the registry, then - outside
// the registry lock - scrubs it from every remaining account's
// contacts and from the channel registry's ban/mute lists. This
// ordering (drop the map entry first, then touch each channel's own
// lock individually) keeps the registry lock and channel-room locks
// leaf-ordered and avoids lock inversion.
func (r *AccountRegistry) Delete(name string, channels ChannelCleaner) error {
	r.mu.Lock()
	if _, ok := r.accounts[name]; !ok {
		r.mu.Unlock()
		return ErrNoUser
	}
	delete(r.accounts, name)
	remaining := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		remaining = append(remaining, a)
	}
	r.mu.Unlock()

	for _, a := range remaining {
		a.removeContactIfPresent(name)
	}
	if channels != nil {
		channels.RemoveName(name)
	}
	return nil
}

// ConnTable is the Server-owned connection table that realizes the
// "weak back-reference" from an Account to its live connection: a
// lookup by connection identity returns nothing once HandlerStack
// teardown has removed the entry, exactly as a weak reference would
// once its target is gone.
type ConnTable struct {
	mu    sync.RWMutex
	conns map[string]*transport.Conn
}

// NewConnTable returns an empty connection table.
func NewConnTable() *ConnTable {
	return &ConnTable{conns: make(map[string]*transport.Conn)}
}

// Register records conn under id, overwriting any previous entry.
func (t *ConnTable) Register(id string, conn *transport.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[id] = conn
}

// Remove drops id from the table, if present.
func (t *ConnTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

// Lookup returns the connection registered under id, if any.
func (t *ConnTable) Lookup(id string) (*transport.Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

// DeliverMessage appends a new unread Message to name's inbox and, if
// name is currently online, prints a real-time notification to its
// live connection via the connection table. It reports ErrNoUser if
// the recipient does not exist.
func DeliverMessage(registry *AccountRegistry, conns *ConnTable, source, name, text string) error {
	acct, ok := registry.Get(name)
	if !ok {
		return ErrNoUser
	}
	acct.AddMessage(source, text)
	if id, online := acct.ConnID(); online {
		if conn, ok := conns.Lookup(id); ok {
			_ = conn.Println("You have a new message from", source+".")
		}
	}
	return nil
}
