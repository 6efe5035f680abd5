// Package status broadcasts player events to websocket clients, so a host
// UI can draw a progress bar and the playback state.
package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/seqplay"
)

const writeTimeout = 200 * time.Millisecond

// Event is the JSON message sent to clients.
type Event struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Frame   *int   `json:"frame,omitempty"`
	Frames  int    `json:"frames,omitempty"`
	Loaded  int    `json:"loaded,omitempty"`
	Total   int    `json:"total,omitempty"`
	Percent *int   `json:"percent,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Hub keeps the connected clients and the last known state, which every new
// client receives first.
type Hub struct {
	log        logrus.FieldLogger
	upgrader   websocket.Upgrader
	writeMutex sync.Mutex

	mutex   sync.RWMutex
	clients map[*websocket.Conn]bool
	last    Event
}

// NewHub creates a Hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		log:      logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*websocket.Conn]bool{},
		last:     Event{Type: "state", State: seqplay.StateIdle.String()},
	}
}

// Listener returns player callbacks that publish to the hub. player is read
// for the state, so the listener must be attached to that player.
func (h *Hub) Listener(player func() *seqplay.SequencePlayer) seqplay.Listener {
	state := func() {
		if p := player(); p != nil {
			frame := p.CurrentFrame()
			h.Publish(Event{Type: "state", State: p.State().String(), Frame: &frame})
		}
	}
	return seqplay.Listener{
		OnProgress: func(progress seqplay.LoadProgress) {
			percent := progress.Percent()
			h.Publish(Event{Type: "progress", Loaded: progress.Loaded, Total: progress.Total, Percent: &percent})
		},
		OnLoaded: func(frameCount int) {
			h.Publish(Event{Type: "loaded", Frames: frameCount})
		},
		OnPlay:  state,
		OnPause: state,
		OnFrame: func(index int) {
			h.Publish(Event{Type: "frame", Frame: &index})
		},
		OnComplete: func() {
			h.Publish(Event{Type: "complete"})
			state()
		},
		OnError: func(err error) {
			h.Publish(Event{Type: "error", Error: err.Error()})
		},
	}
}

// Publish sends e to every client. State events are remembered for clients
// that connect later.
func (h *Hub) Publish(e Event) {
	b, err := json.Marshal(e)
	if err != nil {
		h.log.WithError(err).Warn("Failed to encode status event")
		return
	}

	h.mutex.Lock()
	if e.Type == "state" {
		h.last = e
	}
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		h.write(c, b)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket that receives the events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	last := h.last
	h.mutex.Unlock()

	if b, err := json.Marshal(last); err == nil {
		h.write(conn, b)
	}

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	clients := h.clients
	h.clients = map[*websocket.Conn]bool{}
	h.mutex.Unlock()

	for c := range clients {
		c.Close()
	}
}

// write sends b to c. A websocket connection allows one writer at a time.
func (h *Hub) write(c *websocket.Conn, b []byte) {
	h.writeMutex.Lock()
	defer h.writeMutex.Unlock()

	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
		h.log.WithError(err).Debug("Failed to write status event")
	}
}
