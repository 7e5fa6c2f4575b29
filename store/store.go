// Package store persists the server's durable state - accounts, the
// ban list, channel configuration, and opaque global settings -
// across restarts. Everything else (live connections, admin locks,
// membership) is transient and never touches this package.
package store

import (
	"context"
	"errors"

	"github.com/blastus/confabulator/state"
)

// ErrSettingNotFound is returned by GetSetting when key is absent.
var ErrSettingNotFound = errors.New("store: setting not found")

// AccountRecord is the durable snapshot of one Account.
type AccountRecord struct {
	Name          string
	Password      string
	Administrator bool
	Forgiven      int
	Contacts      []string
	Messages      []state.Message
}

// ChannelRecord is the durable snapshot of one Room, excluding every
// transient field (connected members, admin lock, state machine
// phase) per the spec's persistence note.
type ChannelRecord struct {
	ID       int
	Name     string
	Owner    string
	Password string
	BufSize  *int
	Replay   *int
	Banned   []string
	Muted    map[string][]string // target name -> muter names
}

// Store is the persistence boundary: everything the server loads at
// startup and saves at clean shutdown.
type Store interface {
	LoadAccounts(ctx context.Context) ([]AccountRecord, error)
	SaveAccounts(ctx context.Context, records []AccountRecord) error

	LoadBans(ctx context.Context) ([]string, error)
	SaveBans(ctx context.Context, addresses []string) error

	LoadChannels(ctx context.Context) ([]ChannelRecord, error)
	SaveChannels(ctx context.Context, records []ChannelRecord) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// PrivilegeGroupCreate registers a named privilege group. Present
	// for a future authorization layer; nothing in the handler package
	// consults it yet.
	PrivilegeGroupCreate(ctx context.Context, name string) error

	// PrivilegeRelationshipCreate records that child inherits from
	// parent in the privilege-group graph.
	PrivilegeRelationshipCreate(ctx context.Context, parent, child string) error

	// DescendantGroups returns every privilege group reachable from
	// root by following the group graph, root included.
	DescendantGroups(ctx context.Context, root string) ([]string, error)

	Close() error
}
