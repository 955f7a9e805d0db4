package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/jeongseonghan/ofdm-channel/internal/config"
	"github.com/jeongseonghan/ofdm-channel/internal/sim"
)

// Sweep states reported by /api/status and the "status" message.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Handlers holds the HTTP API handlers.
type Handlers struct {
	ctx   context.Context
	base  config.Config
	wsHub *WSHub

	mu      sync.Mutex
	status  string
	message string
	points  []sim.Point
	done    chan struct{}
}

// NewHandlers creates API handlers whose sweeps start from base and stop
// when ctx is canceled.
func NewHandlers(ctx context.Context, base *config.Config) *Handlers {
	return &Handlers{
		ctx:    ctx,
		base:   *base,
		wsHub:  NewWSHub(),
		status: StatusIdle,
	}
}

// HandleWebSocket handles WebSocket upgrade requests.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	h.wsHub.AddClient(conn)

	// Drain client messages until the connection closes
	go func() {
		defer h.wsHub.RemoveClient(conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

// HandleConfig returns the base configuration sweeps start from.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.base)
}

// HandleSweep starts a sweep in the background. The JSON body overrides
// fields of the base configuration, except the pilot file. Only one sweep
// runs at a time.
func (h *Handlers) HandleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := h.base
	cfg.SNRs = append([]float64(nil), h.base.SNRs...)
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, fmt.Sprintf("Parse request: %v", err), http.StatusBadRequest)
			return
		}
	}
	// pilot files are read from the server's disk; clients cannot pick one
	cfg.Pilot.File = h.base.Pilot.File

	runner, err := sim.New(&cfg, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.status == StatusRunning {
		h.mu.Unlock()
		http.Error(w, "Sweep already running", http.StatusConflict)
		return
	}
	h.status = StatusRunning
	h.message = ""
	h.points = nil
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	msg := fmt.Sprintf("Sweeping %d SNR points over %d bits each", len(cfg.SNRs), runner.TotalBits())
	h.wsHub.BroadcastStatus(StatusRunning, msg)

	go func() {
		defer close(done)
		_, err := runner.Run(h.ctx, func(p sim.Point) {
			h.mu.Lock()
			h.points = append(h.points, p)
			h.mu.Unlock()
			h.wsHub.BroadcastResult(p)
		})

		h.mu.Lock()
		if err != nil {
			h.status, h.message = StatusError, err.Error()
		} else {
			h.status, h.message = StatusCompleted, "Sweep finished"
		}
		status, message := h.status, h.message
		h.mu.Unlock()

		if err != nil {
			log.Printf("Sweep failed: %v", err)
			h.wsHub.BroadcastLog("error", message)
		}
		h.wsHub.BroadcastStatus(status, message)
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":    StatusRunning,
		"snrs":      len(cfg.SNRs),
		"totalBits": runner.TotalBits(),
	})
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Points  []sim.Point `json:"points"`
}

// HandleStatus returns the current sweep state and the points so far.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := StatusResponse{
		Status:  h.status,
		Message: h.message,
		Points:  append([]sim.Point{}, h.points...),
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// Wait blocks until the current sweep, if any, has finished.
func (h *Handlers) Wait() {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done != nil {
		<-done
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode response: %v", err)
	}
}
