package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"

	"github.com/blastus/confabulator/channel"
	"github.com/blastus/confabulator/config"
	"github.com/blastus/confabulator/logging"
	"github.com/blastus/confabulator/server"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/store"
)

// Container groups together every shared dependency the server needs,
// so main can wire them once and pass the bundle around instead of
// threading a dozen constructor arguments by hand.
type Container struct {
	cfg      config.Config
	store    *store.SQLiteStore
	accounts *state.AccountRegistry
	bans     *state.BanList
	conns    *state.ConnTable
	channels *channel.Registry
}

// MakeCommonDeps loads configuration, opens the durable store, and
// restores every in-memory registry from it.
func MakeCommonDeps() (Container, error) {
	c := Container{}

	if err := envconfig.Process("", &c.cfg); err != nil {
		return c, fmt.Errorf("unable to process app config: %w", err)
	}

	st, err := store.NewSQLiteStore(c.cfg.DBPath)
	if err != nil {
		return c, fmt.Errorf("unable to open database: %w", err)
	}
	c.store = st

	c.accounts = state.NewAccountRegistry()
	c.bans = state.NewBanList()
	c.conns = state.NewConnTable()
	c.channels = channel.NewRegistry(c.accounts, c.conns, c.cfg.BuiltinBufferLimit, c.cfg.DefaultReplaySize)

	ctx := context.Background()

	accounts, err := c.store.LoadAccounts(ctx)
	if err != nil {
		return c, fmt.Errorf("unable to load accounts: %w", err)
	}
	for _, a := range accounts {
		c.accounts.Restore(a.Name, a.Password, a.Administrator, a.Forgiven, a.Contacts, a.Messages)
	}

	bans, err := c.store.LoadBans(ctx)
	if err != nil {
		return c, fmt.Errorf("unable to load ban list: %w", err)
	}
	for _, addr := range bans {
		c.bans.Add(addr)
	}

	channels, err := c.store.LoadChannels(ctx)
	if err != nil {
		return c, fmt.Errorf("unable to load channels: %w", err)
	}
	for _, ch := range channels {
		c.channels.Restore(channel.Snapshot{
			ID:       ch.ID,
			Name:     ch.Name,
			Owner:    ch.Owner,
			Password: ch.Password,
			BufSize:  ch.BufSize,
			Replay:   ch.Replay,
			Banned:   ch.Banned,
			Muted:    ch.Muted,
		})
	}

	return c, nil
}

// SaveAll persists every in-memory registry back to the store. It is
// called once, on a clean shutdown.
func (c Container) SaveAll(ctx context.Context) error {
	var records []store.AccountRecord
	for _, name := range c.accounts.Names() {
		acct, ok := c.accounts.Get(name)
		if !ok {
			continue
		}
		records = append(records, store.AccountRecord{
			Name:          acct.Name,
			Password:      acct.Password,
			Administrator: acct.Administrator,
			Forgiven:      acct.Forgiven(),
			Contacts:      acct.Contacts(),
			Messages:      acct.Messages(),
		})
	}
	if err := c.store.SaveAccounts(ctx, records); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}

	if err := c.store.SaveBans(ctx, c.bans.List()); err != nil {
		return fmt.Errorf("save bans: %w", err)
	}

	var channels []store.ChannelRecord
	for _, snap := range c.channels.Snapshots() {
		channels = append(channels, store.ChannelRecord{
			ID:       snap.ID,
			Name:     snap.Name,
			Owner:    snap.Owner,
			Password: snap.Password,
			BufSize:  snap.BufSize,
			Replay:   snap.Replay,
			Banned:   snap.Banned,
			Muted:    snap.Muted,
		})
	}
	if err := c.store.SaveChannels(ctx, channels); err != nil {
		return fmt.Errorf("save channels: %w", err)
	}

	return nil
}

// Confabulator builds the TCP server from the container's
// dependencies, throttling new connections per address via a token
// bucket the way the teacher's accept loop throttles login attempts.
func Confabulator(c Container) *server.Server {
	logger := logging.New(c.cfg.LogLevel)
	limiter := server.NewConnRateLimiter(rate.Limit(5), 10, 5*time.Minute)
	return server.New(c.cfg.ListenAddress, c.cfg, c.accounts, c.bans, c.conns, c.channels, logger, limiter)
}
