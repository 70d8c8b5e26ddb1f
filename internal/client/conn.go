package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/tacmap/relay/pkg/core"
	"github.com/tacmap/relay/pkg/streaming"
)

const (
	sendChSize   = 1024
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Conn manages a participant's websocket connection with a single write
// goroutine. Lost connections are re-dialed with exponential backoff; the
// declared identity is replayed after a reconnect and the host's resync
// replay rebuilds the mirror.
type Conn struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	isHost bool

	// Cached declareIdentity message for reconnect replay.
	cachedIdentity []byte

	mirror   *Mirror
	logger   *slog.Logger
	placeSeq atomic.Uint64
}

// Dial connects to a session host and starts the read/write loops.
func Dial(rawURL string, isHost bool, mirror *Mirror, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		wsURL:  rawURL,
		isHost: isHost,
		mirror: mirror,
		logger: logger,
	}

	conn, err := c.dialOnce()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()

	return c, nil
}

// dialOnce performs a single websocket dial with the isHost query param.
func (c *Conn) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	if c.isHost {
		q.Set("isHost", "true")
	}
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh and writes messages to the websocket.
// Only one writeLoop runs at a time; it returns on error or shutdown.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				continue
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("websocket SetWriteDeadline error", "error", err)
				go c.reconnect()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("websocket write error", "error", err)
				go c.reconnect()
				return
			}
		}
	}
}

// readLoop replays host messages into the mirror.
func (c *Conn) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("websocket read error", "error", err)
			go c.reconnect()
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Debug("unparseable message", "raw", string(message))
			continue
		}
		if err := c.mirror.Apply(env); err != nil {
			c.logger.Warn("mirror apply failed", "type", env.Type, "error", err)
		}
	}
}

// reconnect attempts to re-establish the connection with exponential
// backoff. On success it replays the declared identity and restarts the
// read/write loops; the host's resync rebuilds the mirror.
func (c *Conn) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("reconnecting", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		cached := c.cachedIdentity
		c.mu.Unlock()

		// Replay the identity so the fresh participant id carries the same
		// display data.
		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("failed to set deadline for identity replay", "error", err)
				_ = conn.Close()
				continue
			}
			if err := conn.WriteMessage(ws.TextMessage, cached); err != nil {
				c.logger.Warn("failed to replay identity after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("reconnected", "attempt", attempt)
		go c.writeLoop()
		go c.readLoop()
		return
	}

	c.logger.Error("reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// send marshals and queues one message. Non-blocking; drops if the queue
// is full.
func (c *Conn) send(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		c.logger.Warn("send channel full, dropping message", "type", msgType)
		return fmt.Errorf("send queue full: %s", msgType)
	}
}

// Close sends a close frame and shuts down all goroutines.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}

// DeclareIdentity announces display data. The message is cached for
// replay after a reconnect.
func (c *Conn) DeclareIdentity(displayName, pinColor, markerColor string) error {
	payload := streaming.DeclareIdentityPayload{
		DisplayName: displayName,
		PinColor:    pinColor,
		MarkerColor: markerColor,
	}
	data, err := streaming.Marshal(streaming.TypeDeclareIdentity, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cachedIdentity = data
	c.mu.Unlock()

	select {
	case c.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("send queue full: %s", streaming.TypeDeclareIdentity)
	}
}

// newPlacementID builds an owner-scoped pin id: wall-clock millis plus an
// in-process counter, unique per owner even for same-millisecond requests.
func (c *Conn) newPlacementID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), c.placeSeq.Add(1))
}

// PlacePin requests a pin and returns the placement id to address it with.
// Safe to retry with the host deduplicating on the id.
func (c *Conn) PlacePin(lat, lon float64, color string, kind core.PinKind, groupID string) (string, error) {
	id := c.newPlacementID()
	err := c.send(streaming.TypePlacePin, streaming.PlacePinPayload{
		PlacementID: id,
		GroupID:     groupID,
		Lat:         lat,
		Lon:         lon,
		Color:       color,
		Kind:        kind,
	})
	return id, err
}

// RemovePin requests removal of one of this participant's pins.
func (c *Conn) RemovePin(placementID string) error {
	return c.send(streaming.TypeRemovePin, streaming.RemovePinPayload{PlacementID: placementID})
}

// UpdateRadius sets a pin's radius circle.
func (c *Conn) UpdateRadius(placementID string, meters float64, color string) error {
	return c.send(streaming.TypeUpdateRadius, streaming.UpdateFieldPayload{
		PlacementID: placementID,
		Value:       meters,
		Color:       color,
	})
}

// UpdateElevation sets a pin's elevation.
func (c *Conn) UpdateElevation(placementID string, elevation float64) error {
	return c.send(streaming.TypeUpdateElevation, streaming.UpdateFieldPayload{
		PlacementID: placementID,
		Value:       elevation,
	})
}

// UpdateBearing pushes a client-computed bearing; the host stores and
// relays it without deriving its own.
func (c *Conn) UpdateBearing(placementID string, degrees float64) error {
	return c.send(streaming.TypeUpdateBearing, streaming.UpdateFieldPayload{
		PlacementID: placementID,
		Value:       degrees,
	})
}

// PushBearingFromMarker computes the bearing from this participant's own
// marker to one of its pins and pushes it to the host.
func (c *Conn) PushBearingFromMarker(placementID string) error {
	key := core.PinKey{OwnerID: c.mirror.SelfID(), PlacementID: placementID}
	bearing, ok := c.mirror.BearingToPin(key)
	if !ok {
		return fmt.Errorf("no marker or pin for bearing of %s", placementID)
	}
	return c.UpdateBearing(placementID, bearing)
}

// ClearMine removes every pin this participant owns.
func (c *Conn) ClearMine() error {
	return c.send(streaming.TypeClearMine, struct{}{})
}

// ClearAll asks the host to empty the whole board. Host connections only;
// anyone else is silently dropped server-side.
func (c *Conn) ClearAll() error {
	return c.send(streaming.TypeClearAll, struct{}{})
}

// PlaceShape creates a host-drawn overlay shape.
func (c *Conn) PlaceShape(shape streaming.ShapePayload) error {
	return c.send(streaming.TypePlaceShape, shape)
}

// UpdateShape replaces a shape's fields.
func (c *Conn) UpdateShape(shape streaming.ShapePayload) error {
	return c.send(streaming.TypeUpdateShape, shape)
}

// RemoveShape deletes a shape.
func (c *Conn) RemoveShape(id string) error {
	return c.send(streaming.TypeRemoveShape, streaming.RemoveShapePayload{ID: id})
}

// SendChat posts a chat line.
func (c *Conn) SendChat(text string) error {
	return c.send(streaming.TypeChatMessage, streaming.ChatMessagePayload{
		Text:            text,
		ClientTimestamp: time.Now(),
	})
}

// PlaceMarker places or moves this participant's position marker.
func (c *Conn) PlaceMarker(lat, lon float64) error {
	return c.send(streaming.TypePlaceMarker, streaming.PlaceMarkerPayload{Lat: lat, Lon: lon})
}
