// Package session assembles the engine for one participant: event loop, bus,
// status board, presence registry, link manager and position reporter.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mustafaturan/bus/v3"
	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/event"
	"nuha.dev/livetrace/internal/geo"
	"nuha.dev/livetrace/internal/link"
	"nuha.dev/livetrace/internal/link/wstransport"
	"nuha.dev/livetrace/internal/loop"
	"nuha.dev/livetrace/internal/presence"
	"nuha.dev/livetrace/internal/reporter"
	"nuha.dev/livetrace/internal/stat"
	"nuha.dev/livetrace/internal/status"
	"nuha.dev/livetrace/internal/web"
)

const loopBacklog = 256

type Config struct {
	Self       string
	PageURL    string
	RetryDelay time.Duration
	Transport  wstransport.Config
	// Node distinguishes event ids of sessions sharing a process.
	Node uint64
}

type Session struct {
	log      log.Logger
	self     string
	Loop     *loop.Loop
	Bus      *bus.Bus
	Board    *status.Board
	Stat     *stat.Stat
	Registry *presence.Registry
	Link     *link.Manager
	Reporter *reporter.Reporter
}

func New(conf Config, surface presence.Surface) (*Session, error) {
	if conf.Self == "" {
		return nil, fmt.Errorf("session: empty participant id")
	}
	s := &Session{self: conf.Self}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "session").Str("self", conf.Self).Value()

	eb, err := event.NewBus(conf.Node)
	if err != nil {
		return nil, err
	}
	s.Bus = eb
	s.Loop = loop.New(loopBacklog)
	s.Board = status.NewBoard()
	s.Board.Attach(eb)
	s.Stat = stat.NewStat()
	s.Stat.Attach(eb)
	s.Registry = presence.NewRegistry(conf.Self, surface)

	dialer := wstransport.NewDialer(s.Loop, conf.Transport)
	lc := link.Config{PageURL: conf.PageURL, Self: conf.Self, RetryDelay: conf.RetryDelay}
	s.Link, err = link.NewManager(lc, dialer, s.Loop, eb, counted{s.Registry, s.Stat})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.Reporter = reporter.New(conf.Self, s.Registry, s.Link, eb)
	return s, nil
}

// counted tallies remote updates on their way into the registry.
type counted struct {
	reg  *presence.Registry
	stat *stat.Stat
}

func (c counted) Upsert(id string, p geo.Position) {
	c.stat.Incr()
	c.reg.Upsert(id, p)
}

func (s *Session) Self() string {
	return s.self
}

// Run starts the loop, connects and feeds src into the reporter until ctx is
// done. The link is stopped on the loop before the loop itself exits. A nil
// src runs the session as a pure viewer.
func (s *Session) Run(ctx context.Context, src geo.Source) {
	lctx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go s.Loop.Run(lctx)

	s.Loop.Post(s.Link.Connect)

	watched := make(chan struct{})
	if src != nil {
		go func() {
			defer close(watched)
			src.Watch(ctx, func(p geo.Position) {
				s.Loop.Post(func() { s.Reporter.OnSample(p) })
			}, func(err error) {
				s.Loop.Post(func() { s.Reporter.OnError(err) })
			})
		}()
	} else {
		close(watched)
	}

	<-ctx.Done()
	<-watched
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := s.Loop.Do(sctx, s.Link.Stop); err != nil {
		s.log.Warn().Err(err).Msg("unable to stop link")
	}
	cancel()
	stopLoop()
	<-s.Loop.Done()
	s.log.Info().Uint64("attempts", s.Link.Stats().Attempts).Msg("session ended")
}

// Probe must run on the loop.
func (s *Session) Probe() web.Status {
	return web.Status{
		Status:       s.Board.Text(),
		State:        s.Link.State().String(),
		Self:         s.self,
		Endpoint:     s.Link.Endpoint(),
		Participants: s.Registry.Len(),
		Stats:        s.Link.Stats(),
		History:      s.Stat.Snapshot(),
	}
}
