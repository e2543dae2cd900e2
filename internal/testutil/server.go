package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/vk/tensorscope/internal/model"
)

// Server is an in-process tensor backend: the REST API plus a WebSocket
// endpoint at /ws. Subscriptions are answered with a tensor_update built
// from the last run of the subscribed tensor's scenario.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	scenarios map[string]*model.ScenarioDetail
	conns     map[*websocket.Conn]*sync.Mutex
	received  []map[string]any
	runs      []map[string]any
}

// NewServer starts a Server holding the Diamond scenario. It is closed when
// the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		scenarios: map[string]*model.ScenarioDetail{"diamond": Diamond()},
		conns:     make(map[*websocket.Conn]*sync.Mutex),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /api/scenarios", s.listScenarios)
	mux.HandleFunc("GET /api/scenarios/{id}", s.getScenario)
	mux.HandleFunc("POST /api/scenarios/{id}/run", s.runScenario)
	mux.HandleFunc("GET /api/tensors/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, Summary(r.PathValue("id"), "rest"))
	})
	mux.HandleFunc("GET /api/tensors/{id}/data", s.tensorData)
	mux.HandleFunc("GET /api/tensors/{id}/slice", s.tensorSlice)
	mux.HandleFunc("/ws", s.serveWS)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// WSURL is the WebSocket endpoint.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// Close drops every WebSocket client and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.Server.Close()
}

// Received returns the decoded client messages in arrival order.
func (s *Server) Received() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.received...)
}

// ReceivedOfType filters Received by the "type" field.
func (s *Server) ReceivedOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range s.Received() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// Runs returns the parameters of every run request.
func (s *Server) Runs() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.runs...)
}

// Push sends msg to every connected WebSocket client.
func (s *Server) Push(msg any) {
	data, err := sonic.ConfigStd.Marshal(msg)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, wmu := range s.conns {
		wmu.Lock()
		c.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) scenario(w http.ResponseWriter, id string) (*model.ScenarioDetail, bool) {
	s.mu.Lock()
	d, ok := s.scenarios[id]
	s.mu.Unlock()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Scenario '" + id + "' not found"})
	}
	return d, ok
}

func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]model.ScenarioInfo, 0, len(s.scenarios))
	for _, d := range s.scenarios {
		list = append(list, model.ScenarioInfo{ID: d.ID, Name: d.Name, Description: d.Description})
	}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) getScenario(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.scenario(w, r.PathValue("id")); ok {
		s.writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) runScenario(w http.ResponseWriter, r *http.Request) {
	d, ok := s.scenario(w, r.PathValue("id"))
	if !ok {
		return
	}
	var body struct {
		Parameters map[string]any `json:"parameters"`
	}
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	s.runs = append(s.runs, body.Parameters)
	s.mu.Unlock()

	tensors := make(map[string]model.TensorSummary)
	for _, key := range d.ProbeKeys() {
		tensors[key] = Summary(key, body.Parameters["n"])
	}
	s.writeJSON(w, http.StatusOK, model.RunResult{ScenarioID: d.ID, Parameters: body.Parameters, Tensors: tensors})
}

func (s *Server) tensorData(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.writeJSON(w, http.StatusOK, model.TensorData{
		ID: id, Name: id, Shape: []int{2, 2}, DType: "float64",
		Data: []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
	})
}

func (s *Server) tensorSlice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	bound := func(name string, def int) int {
		if n, err := strconv.Atoi(q.Get(name)); err == nil {
			return n
		}
		return def
	}
	rows := [2]int{bound("row_start", 0), bound("row_end", 2)}
	cols := [2]int{bound("col_start", 0), bound("col_end", 2)}
	s.writeJSON(w, http.StatusOK, model.TensorSlice{
		ID: id, Name: id,
		FullShape:  []int{2, 2},
		SliceShape: []int{rows[1] - rows[0], cols[1] - cols[0]},
		RowRange:   rows,
		ColRange:   cols,
		Data:       []any{[]any{3.0, 4.0}},
	})
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wmu := &sync.Mutex{}
	s.mu.Lock()
	s.conns[c] = wmu
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := sonic.ConfigStd.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()

		if msg["type"] == "subscribe" {
			id, _ := msg["tensor_id"].(string)
			reply, _ := sonic.ConfigStd.Marshal(map[string]any{
				"type":      "tensor_update",
				"tensor_id": id,
				"summary":   Summary(id, "subscribed"),
			})
			wmu.Lock()
			c.WriteMessage(websocket.TextMessage, reply)
			wmu.Unlock()
		}
	}
}
