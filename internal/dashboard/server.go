// Package dashboard serves the permit board to browsers: full pages,
// board fragments, a WebSocket push channel and the operator's form posts.
package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/siteops/permitboard/internal/board"
	"github.com/siteops/permitboard/internal/config"
	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/network"
	"github.com/siteops/permitboard/internal/ticker"
	"github.com/siteops/permitboard/internal/view"
)

const shutdownTimeout = 10 * time.Second

// Server is the dashboard HTTP server.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	service    *board.Service
	renderer   *view.Renderer
	hub        *Hub
	scheduler  *ticker.Scheduler
	router     *mux.Router
}

// New wires routes, the push hub and the poll/tick scheduler around svc.
func New(cfg *config.Config, svc *board.Service, renderer *view.Renderer) (*Server, error) {
	allowed, err := network.ParseAllowlist(cfg.AllowedIPs)
	if err != nil {
		return nil, fmt.Errorf("invalid PERMITBOARD_ALLOWED_IPS: %w", err)
	}

	s := &Server{
		config:   cfg,
		service:  svc,
		renderer: renderer,
	}
	s.hub = NewHub(s.renderBoard)
	svc.Subscribe(s.onUpdate)

	s.scheduler = ticker.New(
		ticker.Task{Name: "poll", Interval: cfg.PollInterval, Run: svc.Refresh},
		ticker.Task{Name: "tick", Interval: cfg.TickInterval, Run: func(context.Context) error {
			svc.Tick()
			return nil
		}},
	)

	r := mux.NewRouter()
	r.Use(accessLogMiddleware)
	r.Use(network.AllowedIPsMiddleware(allowed))

	r.HandleFunc("/", s.HandlePage(false)).Methods(http.MethodGet)
	r.HandleFunc("/kiosk", s.HandlePage(true)).Methods(http.MethodGet)
	r.HandleFunc("/board", s.HandleBoard()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWS()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)

	op := r.NewRoute().Subrouter()
	op.Use(s.operatorOnly)
	op.Use(network.SameOriginMiddleware)
	op.HandleFunc("/actions/open", s.HandleOpen()).Methods(http.MethodPost)
	op.HandleFunc("/actions/clear", s.HandleClear()).Methods(http.MethodPost)
	op.HandleFunc("/actions/close", s.HandleClose()).Methods(http.MethodPost)
	op.HandleFunc("/actions/threshold", s.HandleThreshold()).Methods(http.MethodPost)
	op.HandleFunc("/login", s.HandleShowLogin()).Methods(http.MethodGet)
	op.HandleFunc("/login", s.HandleLogin()).Methods(http.MethodPost)
	op.HandleFunc("/login/cancel", s.HandleCancelLogin()).Methods(http.MethodPost)
	op.HandleFunc("/logout", s.HandleLogout()).Methods(http.MethodPost)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StdLogger(),
	}
	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the dashboard until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run bootstraps the board, starts polling and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.service.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap board: %w", err)
	}
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer s.scheduler.Stop()

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	mode := "operator"
	if s.config.Kiosk {
		mode = "kiosk"
	}
	logger.Infof("Server", "Run", "dashboard listening on http://%s (%s mode, backend %s)", listener.Addr(), mode, s.config.APIURL)

	serverErrors := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		s.hub.Close()
		return err
	case <-ctx.Done():
		logger.Infof("Server", "Run", "shutdown requested, stopping dashboard")
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Infof("Server", "Run", "dashboard stopped gracefully")
	return nil
}

// onUpdate runs on the goroutine that changed the board.
func (s *Server) onUpdate(u board.Update) {
	s.hub.BroadcastBoard()
	for _, t := range u.Toasts {
		s.hub.BroadcastToast(view.ToastHTML(t))
	}
}

func (s *Server) renderBoard(kiosk bool) (Message, error) {
	b := s.service.Board(kiosk, s.service.Session())
	html, err := s.renderer.BoardHTML(b)
	if err != nil {
		return Message{}, fmt.Errorf("failed to render board: %w", err)
	}
	return Message{HTML: html, Updated: b.UpdatedLabel}, nil
}

// operatorOnly refuses mutating routes on a kiosk display.
func (s *Server) operatorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.service.Kiosk() {
			http.Error(w, "Read-only display", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logs. It keeps
// Hijack working for the WebSocket upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		line := fmt.Sprintf("%s %s %d %s from %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond), network.ClientIP(r))
		if r.Method == http.MethodGet && r.URL.Path != "/" && r.URL.Path != "/kiosk" {
			logger.Debugf("Server", "access", "%s", line)
			return
		}
		logger.Infof("Server", "access", "%s", line)
	})
}
