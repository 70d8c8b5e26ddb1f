// Package server is the host side of a session: it accepts websocket
// connections, serializes every inbound request through a single apply
// loop, mutates the host-private registries, and fans the resulting
// effects out per scope. Clients never mutate anything directly; they see
// results, not requests.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/tacmap/relay/internal/board"
	"github.com/tacmap/relay/internal/dispatcher"
	"github.com/tacmap/relay/internal/roster"
	"github.com/tacmap/relay/internal/router"
	"github.com/tacmap/relay/internal/storage"
	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

const (
	applyChSize      = 1024
	archiveQueueSize = 4096
)

// inbound is one request waiting for the apply loop.
type inbound struct {
	peer *peer
	env  streaming.Envelope
}

// Options configures a Server.
type Options struct {
	SessionName string
	ChatHistory int
	Store       storage.Backend // nil disables archiving
	Logger      *slog.Logger
}

// Server owns the host-side state of one session.
type Server struct {
	logger      *slog.Logger
	sessionName string

	board    *board.Service
	registry *roster.Registry
	disp     *dispatcher.Dispatcher

	store storage.Backend
	tap   *dispatcher.Dispatcher

	upgrader ws.Upgrader

	apply      chan inbound
	register   chan *peer
	unregister chan *peer
	peers      map[string]*peer

	done chan struct{}
	http *http.Server
}

// New builds a Server around fresh registries.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:      logger,
		sessionName: opts.SessionName,
		board:       board.New(logger, opts.ChatHistory),
		registry:    roster.NewRegistry(),
		store:       opts.Store,
		upgrader:    ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		apply:       make(chan inbound, applyChSize),
		register:    make(chan *peer),
		unregister:  make(chan *peer),
		peers:       make(map[string]*peer),
		done:        make(chan struct{}),
	}

	disp, err := dispatcher.New(slogAdapter{logger})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	s.disp = disp
	s.registerHandlers()

	if s.store != nil {
		// The tap gets its own dispatcher so archive writes queue off the
		// apply loop. A full queue drops the record, never the request.
		tap, err := dispatcher.New(slogAdapter{logger})
		if err != nil {
			return nil, fmt.Errorf("creating archive tap: %w", err)
		}
		for _, msgType := range s.disp.Types() {
			tap.Register(msgType, s.recordEvent, dispatcher.Buffered(archiveQueueSize))
		}
		s.tap = tap
	}

	return s, nil
}

// Run starts the apply loop and serves websocket connections on addr
// until Shutdown is called.
func (s *Server) Run(addr string) error {
	if s.store != nil {
		if err := s.store.StartSession(s.sessionName, time.Now()); err != nil {
			return fmt.Errorf("starting archive session: %w", err)
		}
	}

	go s.loop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)

	s.http = &http.Server{Addr: addr, Handler: mux}
	s.logger.Info("session open", "session", s.sessionName, "addr", addr)

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes every connection and ends the archive session.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	if s.http != nil {
		_ = s.http.Shutdown(ctx)
	}
	if s.store != nil {
		if err := s.store.EndSession(time.Now()); err != nil {
			s.logger.Error("archive session end failed", "error", err)
		}
	}
	return nil
}

// Stats reports current session gauges for monitoring.
func (s *Server) Stats() (participants, pins, groups, shapes, queueDepth int) {
	pins, groups, shapes = s.board.Counts()
	return s.registry.Len(), pins, groups, shapes, len(s.apply)
}

// serveWS upgrades one connection and registers its peer. Host role is
// declared with the isHost query parameter; a second host is refused
// before the upgrade.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	isHost := r.URL.Query().Get("isHost") == "true"
	if isHost && s.registry.HostID() != "" {
		http.Error(w, "session already has a host", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	p := newPeer(uuid.NewString(), isHost, conn, s.logger)

	select {
	case s.register <- p:
	case <-s.done:
		p.close()
		return
	}

	go p.writePump()
	go p.readPump(s.apply, s.unregister)
}

// loop is the single writer over all host state. Every join, leave, and
// request is handled to completion before the next is started; this
// serialization is what the registries' invariants lean on.
func (s *Server) loop() {
	for {
		select {
		case <-s.done:
			return
		case p := <-s.register:
			s.handleJoin(p)
		case p := <-s.unregister:
			s.handleLeave(p)
		case in := <-s.apply:
			s.handleRequest(in)
		}
	}
}

func (s *Server) handleJoin(p *peer) {
	participant := core.Participant{ID: p.id, IsHost: p.isHost}
	if !s.registry.Add(participant) {
		// Lost the host race between the HTTP check and here.
		s.logger.Warn("refusing second host", "peer", p.id)
		p.close()
		return
	}
	s.peers[p.id] = p
	s.logger.Info("participant connected", "peer", p.id, "host", p.isHost)

	s.resync(p)
	s.deliver([]dispatcher.Effect{{
		Scope:   router.Broadcast(),
		Type:    streaming.TypeRosterChanged,
		Payload: streaming.RosterPayload{Participants: s.registry.List()},
	}})
}

// resync replays session state to a fresh connection: identity, the shape
// registry, chat history, and the participant's own pins (every pin when
// the connection is the host).
func (s *Server) resync(p *peer) {
	pins := s.board.PinsOwnedBy(p.id)
	if p.isHost {
		pins = s.board.AllPins()
	}

	effects := []dispatcher.Effect{
		{Scope: router.Target(p.id), Type: streaming.TypeWelcome, Payload: streaming.WelcomePayload{
			ParticipantID: p.id,
			IsHost:        p.isHost,
			SessionName:   s.sessionName,
		}},
		{Scope: router.Target(p.id), Type: streaming.TypeShapeSnapshot, Payload: streaming.ShapeSnapshotPayload{
			Shapes: s.board.Shapes(),
		}},
		{Scope: router.Target(p.id), Type: streaming.TypeChatHistory, Payload: streaming.ChatHistoryPayload{
			Messages: s.board.ChatHistory(),
		}},
		{Scope: router.Target(p.id), Type: streaming.TypePinSnapshot, Payload: streaming.PinSnapshotPayload{
			Pins: pins,
		}},
	}
	s.deliver(effects)
}

// handleLeave is the only cancellation path: the leaving participant's
// pins are cleared, each removal is announced, and the roster change is
// broadcast.
func (s *Server) handleLeave(p *peer) {
	if _, ok := s.peers[p.id]; !ok {
		return
	}
	delete(s.peers, p.id)
	p.close()

	removed, purged := s.board.ClearOwner(p.id)
	s.registry.Remove(p.id)
	s.logger.Info("participant disconnected", "peer", p.id, "pinsCleared", len(removed))

	var effects []dispatcher.Effect
	for _, pin := range append(removed, purged...) {
		effects = append(effects, dispatcher.Effect{
			Scope:   router.HostAndOwner(pin.OwnerID),
			Type:    streaming.TypePinRemoved,
			Payload: streaming.PinRefPayload{OwnerID: pin.OwnerID, PlacementID: pin.PlacementID},
		})
	}
	effects = append(effects,
		dispatcher.Effect{
			Scope:   router.Broadcast(),
			Type:    streaming.TypeDisconnected,
			Payload: streaming.DisconnectedPayload{ParticipantID: p.id},
		},
		dispatcher.Effect{
			Scope:   router.Broadcast(),
			Type:    streaming.TypeRosterChanged,
			Payload: streaming.RosterPayload{Participants: s.registry.List()},
		},
	)
	s.deliver(effects)
}

func (s *Server) handleRequest(in inbound) {
	ev := dispatcher.Event{
		Origin:   in.peer.id,
		IsHost:   in.peer.isHost,
		Type:     in.env.Type,
		Payload:  in.env.Payload,
		Received: time.Now(),
	}

	effects, err := s.disp.Dispatch(ev)
	if err != nil {
		// Denials and malformed payloads are dropped without an echo to
		// the requester.
		s.logger.Warn("request dropped", "peer", in.peer.id, "type", in.env.Type, "error", err)
		return
	}

	s.deliver(effects)
	s.archive(ev)
}

// deliver marshals each effect once and enqueues it to every peer its
// scope includes.
func (s *Server) deliver(effects []dispatcher.Effect) {
	for _, eff := range effects {
		data, err := streaming.Marshal(eff.Type, eff.Payload)
		if err != nil {
			s.logger.Error("marshal failed", "type", eff.Type, "error", err)
			continue
		}
		for _, p := range s.peers {
			if eff.Scope.Includes(p.id, p.isHost) {
				p.enqueue(data)
			}
		}
	}
}
