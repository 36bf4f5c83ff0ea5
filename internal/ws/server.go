package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livedev/devserver/internal/config"
	"github.com/shirou/gopsutil/v3/process"
)

type Server struct {
	config         *config.Config
	hub            *Hub
	runner         CommandRunner
	root           string
	frontend       http.Handler
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	startedAt      time.Time
	verbose        bool

	procOnce sync.Once
	proc     *process.Process
}

// StatusResponse is served at /api/status.
type StatusResponse struct {
	Clients       int     `json:"clients"`
	Root          string  `json:"root"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rss_bytes"`
	CPUPercent    float64 `json:"cpu_percent"`
}

// NewServer wires the hub and command runner to HTTP. frontend, when non-nil,
// handles every path not claimed by the WebSocket and API routes.
func NewServer(cfg *config.Config, hub *Hub, runner CommandRunner, root string, frontend http.Handler, verbose bool) *Server {
	s := &Server{
		config:         cfg,
		hub:            hub,
		runner:         runner,
		root:           root,
		frontend:       frontend,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		startedAt:      time.Now(),
		verbose:        verbose,
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/ws/", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)

	if s.frontend != nil {
		mux.Handle("/", s.frontend)
	}
}

func (s *Server) sessionConfig() sessionConfig {
	return sessionConfig{
		pingInterval: s.config.Server.PingInterval,
		pongWait:     s.config.Server.PongWait,
		writeTimeout: s.config.Server.WriteTimeout,
		readLimit:    s.config.Server.MaxMessageSize,
		verbose:      s.verbose,
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.hub.Register()
	if err != nil {
		log.Printf("ws rejecting %s: %v", r.RemoteAddr, err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	log.Printf("WebSocket client %d connected: %s", c.id, r.RemoteAddr)
	newSession(conn, c, s.hub, s.runner, s.sessionConfig()).run(r.Context())
	log.Printf("WebSocket client %d disconnected (%d remaining)", c.id, s.hub.ClientCount())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{
		Clients:       s.hub.ClientCount(),
		Root:          s.root,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}
	if proc := s.process(); proc != nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			resp.RSSBytes = mem.RSS
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) process() *process.Process {
	s.procOnce.Do(func() {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			log.Printf("process stats unavailable: %v", err)
			return
		}
		s.proc = proc
	})
	return s.proc
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.allowedOrigins[origin] {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		return false
	}
	if s.allowedHosts[host] {
		return true
	}
	if host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// SecurityHeaders sets the response headers every route shares. No CSP is
// sent because project pages carry inlined scripts.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts the
// HTTP server down. WebSocket sessions are hijacked connections and must be
// closed through the hub.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
