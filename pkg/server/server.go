// Package server exposes the instrument to network clients: a websocket
// stream of binary frames and commands, plus a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/latest"
	"github.com/itohio/rctrl/pkg/remote"
)

const shutdownTimeout = 5 * time.Second

// ListenerError reports a listener that could not bind or stopped accepting
// for a reason other than shutdown.
type ListenerError struct {
	Addr string
	Err  error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("server: listener %s: %v", e.Addr, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// ConnectionError ends a single client connection.
type ConnectionError struct {
	ID  string
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("server: connection %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Service serves clients from the latest frame slot and relays their
// commands to the control loop.
type Service struct {
	cfg      config.ServerConfig
	latest   *latest.Value[remote.DataFrame]
	commands chan<- remote.Command

	engine   *gin.Engine
	upgrader websocket.Upgrader
	started  time.Time

	connections atomic.Int64
	relayed     atomic.Uint64
	dropped     atomic.Uint64
}

// New creates the service and its routes.
func New(cfg config.ServerConfig, slot *latest.Value[remote.DataFrame], commands chan<- remote.Command) *Service {
	s := &Service{
		cfg:      cfg,
		latest:   slot,
		commands: commands,
		engine:   gin.New(),
		started:  time.Now(),
	}

	s.engine.Use(gin.Recovery())
	if cfg.CORS {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowAllOrigins = true
		s.engine.Use(cors.New(corsCfg))
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	s.setupRoutes()
	return s
}

func (s *Service) setupRoutes() {
	s.engine.GET("/", s.handleStream)
	s.engine.GET("/ws", s.handleStream)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/frame", s.handleFrame)
		v1.POST("/commands/:command", s.handleCommand)
	}
}

// Handler returns the HTTP handler of the service.
func (s *Service) Handler() http.Handler {
	return s.engine
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Service) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return &ListenerError{Addr: s.cfg.Address, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. After that the listener
// is closed and Serve returns nil. Open websocket connections are not closed.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	log.Printf("server: listening on %s", addr)

	select {
	case err := <-errc:
		return &ListenerError{Addr: addr, Err: err}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown: %v", err)
		_ = srv.Close()
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return &ListenerError{Addr: addr, Err: err}
	}
	log.Printf("server: listener %s closed, %d connections still open", addr, s.connections.Load())
	return nil
}

// relay offers cmd to the control loop without blocking.
func (s *Service) relay(cmd remote.Command) bool {
	select {
	case s.commands <- cmd:
		s.relayed.Add(1)
		return true
	default:
		n := s.dropped.Add(1)
		log.Printf("server: command channel full, dropping %s (%d dropped)", cmd, n)
		return false
	}
}
