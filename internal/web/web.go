// Package web serves the shared map and the status line over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/link"
	"nuha.dev/livetrace/internal/stat"
	"nuha.dev/livetrace/internal/util"
)

type Status struct {
	Status       string        `json:"status"`
	State        string        `json:"state"`
	Self         string        `json:"self"`
	Endpoint     string        `json:"endpoint"`
	Participants int           `json:"participants"`
	Stats        link.Stats    `json:"stats"`
	History      stat.Snapshot `json:"history"`
}

// Looper runs fn on the goroutine that owns the session state.
type Looper interface {
	Do(ctx context.Context, fn func()) error
}

type Server struct {
	log    log.Logger
	server *http.Server
	loop   Looper
	view   *Map
	probe  func() Status
}

func NewServer(addr string, loop Looper, view *Map, probe func() Status) *Server {
	s := &Server{loop: loop, view: view, probe: probe}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "web").Value()

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))
	r.Use(middleware.Recoverer)
	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Get("/markers", s.markers)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(sctx)
	}()
	s.log.Info().Msgf("starting view on %s", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	util.JsonWrite(w, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var st Status
	if err := s.loop.Do(r.Context(), func() { st = s.probe() }); err != nil {
		util.JsonError(w, http.StatusServiceUnavailable, err)
		return
	}
	util.JsonWrite(w, st)
}

func (s *Server) markers(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	if err := s.loop.Do(r.Context(), func() { snap = s.view.Snapshot() }); err != nil {
		util.JsonError(w, http.StatusServiceUnavailable, err)
		return
	}
	util.JsonWrite(w, snap)
}
