package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/tacmap/relay/internal/channel"
	"github.com/tacmap/relay/pkg/streaming"
)

const (
	sendChSize = 256
	writeWait  = 10 * time.Second
)

// peer is one connected participant. All writes go through the send
// channel so a single goroutine owns the websocket write side.
type peer struct {
	id     string
	isHost bool

	conn   *ws.Conn
	sendCh channel.Channel[[]byte]
	done   chan struct{}
	once   sync.Once

	logger *slog.Logger
}

func newPeer(id string, isHost bool, conn *ws.Conn, logger *slog.Logger) *peer {
	return &peer{
		id:     id,
		isHost: isHost,
		conn:   conn,
		sendCh: channel.New[[]byte](sendChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue pushes data to the write loop. Non-blocking; drops if the peer
// cannot keep up.
func (p *peer) enqueue(data []byte) {
	if !p.sendCh.TrySend(data) {
		p.logger.Warn("peer send channel full, dropping message", "peer", p.id)
	}
}

// writePump drains sendCh and writes messages to the websocket.
// Only one writePump runs per peer; it returns on error or shutdown.
func (p *peer) writePump() {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.sendCh.Receive():
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				p.logger.Warn("websocket SetWriteDeadline error", "peer", p.id, "error", err)
				return
			}
			if err := p.conn.WriteMessage(ws.TextMessage, data); err != nil {
				p.logger.Warn("websocket write error", "peer", p.id, "error", err)
				return
			}
		}
	}
}

// readPump reads envelopes and hands them to the apply loop. It returns on
// any read error; the server treats that as a disconnect.
func (p *peer) readPump(apply chan<- inbound, unregister chan<- *peer) {
	defer func() {
		unregister <- p
	}()

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			select {
			case <-p.done:
			default:
				p.logger.Debug("websocket read closed", "peer", p.id, "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			p.logger.Warn("dropping unparseable message", "peer", p.id, "error", err)
			continue
		}
		apply <- inbound{peer: p, env: env}
	}
}

// close shuts the peer down. Safe to call more than once.
func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = p.conn.Close()
	})
}
