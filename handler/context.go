// Package handler implements the concrete, user-facing command
// vocabulary: the ban screen, the outside and inside menus, the admin
// console and its sub-editors, and the per-connection handler stack
// that drives them all.
package handler

import (
	"log/slog"

	"github.com/blastus/confabulator/channel"
	"github.com/blastus/confabulator/config"
	"github.com/blastus/confabulator/state"
)

// AcceptGate lets AdminConsole stop the server's accept loop without
// the handler package depending on the server package.
type AcceptGate interface {
	StopAccepting()
}

// Context bundles every shared registry a handler needs, replacing
// the per-class static data (InsideMenu.CHANNEL_NAMES,
// OutsideMenu.ACCOUNTS, BanFilter.BLOCKED) with one explicit value
// threaded through construction. No process-global mutable state.
type Context struct {
	Cfg      config.Config
	Accounts *state.AccountRegistry
	Bans     *state.BanList
	Conns    *state.ConnTable
	Channels *channel.Registry
	Logger   *slog.Logger
	Gate     AcceptGate
}
