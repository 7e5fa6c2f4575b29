// Package server implements the TCP accept loop: it listens on one
// address, tracks every live connection, and drives each one through
// a fresh handler.Stack. It corresponds to the teacher's oscar.Server,
// generalized from a multi-listener SNAC router to this protocol's
// single line-oriented listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/blastus/confabulator/channel"
	"github.com/blastus/confabulator/config"
	"github.com/blastus/confabulator/handler"
	"github.com/blastus/confabulator/state"
	"github.com/blastus/confabulator/transport"
)

// Server accepts connections on one TCP address and runs each through
// the handler stack, starting from a BanFilter.
type Server struct {
	addr    string
	ctx     *handler.Context
	limiter *ConnRateLimiter

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	stopping atomic.Bool

	connWg   sync.WaitGroup
	listenWg sync.WaitGroup
	closed   chan struct{}
}

// New builds a Server that will listen on addr, bundling the shared
// registries every handler needs into a handler.Context. limiter may
// be nil to accept connections unconditionally.
func New(addr string, cfg config.Config, accounts *state.AccountRegistry, bans *state.BanList, conns *state.ConnTable, channels *channel.Registry, logger *slog.Logger, limiter *ConnRateLimiter) *Server {
	s := &Server{
		addr:    addr,
		limiter: limiter,
		conns:   make(map[net.Conn]struct{}),
		closed:  make(chan struct{}),
	}
	s.ctx = &handler.Context{
		Cfg:      cfg,
		Accounts: accounts,
		Bans:     bans,
		Conns:    conns,
		Channels: channels,
		Logger:   logger,
		Gate:     s,
	}
	return s
}

// ListenAndServe opens the listening socket and blocks until Shutdown
// is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.listenWg.Add(1)
	go s.acceptLoop(ln)

	<-s.closed
	return nil
}

// StopAccepting implements handler.AcceptGate: it closes the
// listening socket, which immediately unblocks any in-progress
// Accept() call, the Go equivalent of the original "dial the port
// once to unblock accept" trick. Live connections are left alone.
func (s *Server) StopAccepting() {
	if !s.stopping.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

// Shutdown stops accepting new connections and waits for every live
// connection's handler stack to finish, or for ctx to expire first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.StopAccepting()

	done := make(chan struct{})
	go func() {
		s.connWg.Wait()
		s.listenWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.forceCloseAll()
		<-done
	}
	close(s.closed)
	return nil
}

func (s *Server) forceCloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.listenWg.Done()
	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if s.ctx.Logger != nil {
				s.ctx.Logger.Error("accept error", "err", err)
			}
			continue
		}

		if s.limiter != nil {
			host, _, _ := net.SplitHostPort(raw.RemoteAddr().String())
			if !s.limiter.Allow(host) {
				_ = raw.Close()
				continue
			}
		}

		s.mu.Lock()
		s.conns[raw] = struct{}{}
		s.mu.Unlock()

		s.connWg.Add(1)
		go s.handleConn(raw)
	}
}

func (s *Server) handleConn(raw net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, raw)
		s.mu.Unlock()
		_ = raw.Close()
		s.connWg.Done()
	}()

	conn := transport.NewConn(raw)
	session := handler.NewConnSession(uuid.NewString())
	stack := handler.NewStack(s.ctx, session, handler.NewBanFilter(s.ctx, session))
	stack.Run(conn)
}
