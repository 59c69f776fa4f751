package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/library-dashboard/internal/models"
	"github.com/terra-clan/library-dashboard/internal/viewstate"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ViewMessage is exchanged with websocket viewers. The server sends
// "connected", "render" and "error"; viewers send "search", "category",
// "sort", "next" and "prev".
type ViewMessage struct {
	Type       string                 `json:"type"`
	Data       string                 `json:"data,omitempty"`
	ViewerID   string                 `json:"viewerId,omitempty"`
	Documents  []models.Document      `json:"documents,omitempty"`
	Pagination *models.PaginationInfo `json:"pagination,omitempty"`
}

type viewer struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	// renders holds at most the latest pending render
	renders chan []byte
	done    chan struct{}
}

func newViewer(id string, conn *websocket.Conn) *viewer {
	return &viewer{
		id:      id,
		conn:    conn,
		renders: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
}

// queue replaces any pending render with data without blocking
func (v *viewer) queue(data []byte) {
	for {
		select {
		case v.renders <- data:
			return
		default:
		}
		select {
		case <-v.renders:
		default:
		}
	}
}

// pump writes queued renders until the viewer disconnects. A failed write
// closes the connection so the read loop ends too.
func (v *viewer) pump() {
	for {
		select {
		case data := <-v.renders:
			if err := v.send(data); err != nil {
				slog.Debug("failed to send render", "viewer_id", v.id, "error", err)
				v.conn.Close()
				return
			}
		case <-v.done:
			return
		}
	}
}

func (v *viewer) send(data []byte) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return v.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub is the render sink for connected websocket viewers. It implements
// viewstate.Renderer and replays the latest render to new viewers.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]*viewer
	last    []byte
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		viewers: make(map[string]*viewer),
	}
}

// Render queues the page for every viewer. Slow viewers skip intermediate
// renders and never hold up the caller.
func (h *Hub) Render(page []models.Document, info models.PaginationInfo) {
	if page == nil {
		page = []models.Document{}
	}
	data, err := json.Marshal(ViewMessage{
		Type:       "render",
		Documents:  page,
		Pagination: &info,
	})
	if err != nil {
		slog.Error("failed to marshal render message", "error", err)
		return
	}

	h.mu.Lock()
	h.last = data
	viewers := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()

	for _, v := range viewers {
		v.queue(data)
	}
}

// Count returns the number of connected viewers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// add registers v and queues the latest render for it
func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewers[v.id] = v
	if h.last != nil {
		v.queue(h.last)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers, id)
}

func (s *Server) handleViewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	v := newViewer(uuid.NewString(), conn)
	slog.Info("view websocket connected", "viewer_id", v.id)

	if err := sendMessage(v, ViewMessage{Type: "connected", ViewerID: v.id}); err != nil {
		return
	}

	s.hub.add(v)
	defer s.hub.remove(v.id)
	go v.pump()
	defer close(v.done)

	controller := s.manager.Controller()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err, "viewer_id", v.id)
			}
			break
		}

		var msg ViewMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			sendMessage(v, ViewMessage{Type: "error", Data: "invalid message"})
			continue
		}

		if !applyViewMessage(controller, msg) {
			sendMessage(v, ViewMessage{Type: "error", Data: "unknown message type: " + msg.Type})
		}
	}

	slog.Info("view websocket disconnected", "viewer_id", v.id)
}

// applyViewMessage forwards a viewer command to the controller. The
// resulting render reaches every viewer through the hub.
func applyViewMessage(c *viewstate.Controller, msg ViewMessage) bool {
	switch msg.Type {
	case "search":
		c.SetSearchText(msg.Data)
	case "category":
		c.SetCategory(msg.Data)
	case "sort":
		c.SetSort(models.ParseSortKey(msg.Data))
	case "next":
		c.NextPage()
	case "prev":
		c.PrevPage()
	default:
		return false
	}
	return true
}

func sendMessage(v *viewer, msg ViewMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal view message", "error", err)
		return err
	}
	if err := v.send(data); err != nil {
		slog.Debug("failed to send view message", "error", err, "viewer_id", v.id)
		return err
	}
	return nil
}
