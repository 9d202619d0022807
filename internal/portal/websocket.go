package portal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/wifiapp/internal/logging"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Events buffered per subscriber before it is dropped as too slow
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The portal is served on the device's own network to any browser.
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscriber is one websocket connection.
type subscriber struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	done       chan struct{}
	once       sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// hub fans events out to every subscriber. publish never blocks.
type hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

// add registers a connection and queues initial for it. It returns nil when
// the hub is already closed.
func (h *hub) add(conn *websocket.Conn, remoteAddr string, initial []byte) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	s := &subscriber{
		conn:       conn,
		remoteAddr: remoteAddr,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	if initial != nil {
		s.send <- initial
	}
	h.subs[s] = struct{}{}
	h.wg.Add(2)
	return s
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func (h *hub) publish(ev Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		logging.Error("Failed to encode event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
			logging.Warn("Dropping slow websocket subscriber",
				zap.String("remote_addr", s.remoteAddr),
			)
			delete(h.subs, s)
			s.close()
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// closeAll disconnects every subscriber and waits for their pumps to exit.
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		s.close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// writePump owns all writes to the connection.
func (h *hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		h.wg.Done()
		logging.LogConnection(s.remoteAddr, "websocket_closed")
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug("Websocket write failed", zap.String("remote_addr", s.remoteAddr), zap.Error(err))
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// readPump discards client messages and detects dead peers.
func (h *hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		h.wg.Done()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("Websocket closed unexpectedly", zap.String("remote_addr", s.remoteAddr), zap.Error(err))
			}
			return
		}
	}
}
