package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
)

const wsIdlePingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type progressClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ProgressHub fans run progress out to websocket subscribers of that run.
// Slow clients miss updates instead of blocking the generator.
type ProgressHub struct {
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	clients map[string]map[*progressClient]struct{}
}

func NewProgressHub(log *zap.SugaredLogger) *ProgressHub {
	return &ProgressHub{
		log:     log,
		clients: make(map[string]map[*progressClient]struct{}),
	}
}

func (h *ProgressHub) Publish(_ context.Context, p corpus.Progress) {
	msg, err := progressMessage(p)
	if err != nil {
		h.log.Errorf("encode progress of run %s: %v", p.RunID, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[p.RunID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *ProgressHub) Subscribers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID])
}

func (h *ProgressHub) register(runID string, c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = make(map[*progressClient]struct{})
	}
	h.clients[runID][c] = struct{}{}
}

func (h *ProgressHub) unregister(runID string, c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[runID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, runID)
	}
}

// Serve upgrades the request and streams progress of runID until the client
// goes away. snapshot, when set, is sent first.
func (h *ProgressHub) Serve(w http.ResponseWriter, r *http.Request, runID string, snapshot *corpus.Progress) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugf("websocket upgrade for run %s: %v", runID, err)
		return
	}
	client := &progressClient{conn: conn, send: make(chan []byte, 16)}
	if snapshot != nil {
		if msg, err := progressMessage(*snapshot); err == nil {
			client.send <- msg
		}
	}
	h.register(runID, client)

	go func() {
		defer conn.Close()
		if err := writeWithHeartbeat(conn, client.send); err != nil {
			h.log.Debugf("websocket for run %s closed: %v", runID, err)
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(runID, client)
			return
		}
	}
}

func progressMessage(p corpus.Progress) ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wsMessage{Type: "progress", Payload: payload})
}

func writeWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping, _ := json.Marshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
