package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Server is the HTTP server for the sweep API.
type Server struct {
	mux       *http.ServeMux
	handler   *Handlers
	addr      string
	staticDir string
	srv       *http.Server
}

// NewServer creates a new HTTP server. An empty staticDir serves no files.
func NewServer(addr string, handler *Handlers, staticDir string) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		handler:   handler,
		addr:      addr,
		staticDir: staticDir,
	}
	s.setupRoutes()
	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("/api/config", s.handler.HandleConfig)
	s.mux.HandleFunc("/api/sweep", s.handler.HandleSweep)
	s.mux.HandleFunc("/api/status", s.handler.HandleStatus)

	// WebSocket
	s.mux.HandleFunc("/ws", s.handler.HandleWebSocket)

	// Static files
	if s.staticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("Starting server on %s", s.addr)
	fmt.Printf("\n  OFDM simulator running at http://%s\n\n", s.addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for a running sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	s.handler.Wait()
	return err
}
