package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/siteops/permitboard/internal/logger"
)

const (
	// MessageBoard replaces the live board region.
	MessageBoard = "board"
	// MessageToast shows a transient notice.
	MessageToast = "toast"

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 8
)

// Message is one push to a viewer.
type Message struct {
	Kind    string `json:"kind"`
	HTML    string `json:"html"`
	Updated string `json:"updated,omitempty"`
}

// RenderFunc renders the board region for a kiosk or operator viewer.
type RenderFunc func(kiosk bool) (Message, error)

type viewer struct {
	id    string
	kiosk bool
	conn  *websocket.Conn
	send  chan []byte
}

// Hub fans board renders out to connected browsers. A viewer whose
// buffer is full is dropped; its page reconnects and gets a fresh board.
//
// Board renders happen on one goroutine, so viewers receive boards in the
// order they were rendered. Requests that arrive while a render is pending
// collapse into it.
type Hub struct {
	render   RenderFunc
	upgrader websocket.Upgrader
	refresh  chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	viewers map[string]*viewer
	closed  bool
}

// NewHub creates a hub that renders with render and starts its broadcast
// loop. Close stops it.
func NewHub(render RenderFunc) *Hub {
	h := &Hub{
		render: render,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		viewers: map[string]*viewer{},
	}
	go h.run()
	return h
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// ServeWS upgrades the request and registers the viewer. The first board
// is sent straight away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, kiosk bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf("Hub", "ServeWS", "upgrade failed: %v", err)
		return
	}

	v := &viewer{
		id:    uuid.NewString(),
		kiosk: kiosk,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.viewers[v.id] = v
	h.mu.Unlock()

	logger.Debugf("Hub", "ServeWS", "viewer %s connected (kiosk=%v)", v.id, kiosk)
	h.BroadcastBoard()

	go h.writeLoop(v)
	go h.readLoop(v)
}

// BroadcastBoard schedules a fresh board for every viewer. It never blocks.
func (h *Hub) BroadcastBoard() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.refresh:
			h.pushBoard()
		}
	}
}

// pushBoard renders once per viewer kind and pushes the result. Only run
// calls it.
func (h *Hub) pushBoard() {
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	cache := map[bool][]byte{}
	for _, v := range targets {
		data, ok := cache[v.kiosk]
		if !ok {
			var err error
			data, err = h.encode(v.kiosk)
			if err != nil {
				logger.Error("Hub", "pushBoard", err)
				return
			}
			cache[v.kiosk] = data
		}
		h.deliver(v, data)
	}
}

// BroadcastToast pushes html to operator viewers; kiosks show no toasts.
func (h *Hub) BroadcastToast(html string) {
	data, err := json.Marshal(Message{Kind: MessageToast, HTML: html})
	if err != nil {
		logger.Error("Hub", "BroadcastToast", err)
		return
	}

	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		if !v.kiosk {
			targets = append(targets, v)
		}
	}
	h.mu.Unlock()

	for _, v := range targets {
		h.deliver(v, data)
	}
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	viewers := h.viewers
	h.viewers = map[string]*viewer{}
	h.mu.Unlock()

	for _, v := range viewers {
		close(v.send)
	}
}

func (h *Hub) encode(kiosk bool) ([]byte, error) {
	msg, err := h.render(kiosk)
	if err != nil {
		return nil, err
	}
	msg.Kind = MessageBoard
	return json.Marshal(msg)
}

// deliver never blocks the broadcaster.
func (h *Hub) deliver(v *viewer, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v.id]; !ok {
		return
	}
	select {
	case v.send <- data:
	default:
		logger.Debugf("Hub", "deliver", "viewer %s too slow, dropping", v.id)
		h.removeLocked(v)
	}
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(v)
}

func (h *Hub) removeLocked(v *viewer) {
	if _, ok := h.viewers[v.id]; !ok {
		return
	}
	delete(h.viewers, v.id)
	close(v.send)
}

func (h *Hub) writeLoop(v *viewer) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case data, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debugf("Hub", "writeLoop", "write to %s failed: %v", v.id, err)
				h.remove(v)
				return
			}
		case <-ping.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(v)
				return
			}
		}
	}
}

// readLoop only drains control frames; viewers never send commands.
func (h *Hub) readLoop(v *viewer) {
	defer func() {
		h.remove(v)
		logger.Debugf("Hub", "readLoop", "viewer %s disconnected", v.id)
	}()

	v.conn.SetReadLimit(512)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debugf("Hub", "readLoop", "read error from %s: %v", v.id, err)
			}
			return
		}
	}
}
