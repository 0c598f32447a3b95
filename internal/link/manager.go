// Package link owns the connection to the location stream: it dials, notices
// loss, retries on a fixed delay forever and feeds decoded records to the
// presence registry.
package link

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/event"
	"nuha.dev/livetrace/internal/loop"
	"nuha.dev/livetrace/internal/wire"
)

const DefaultRetryDelay = time.Second

type Config struct {
	PageURL    string
	Self       string
	RetryDelay time.Duration
}

type Stats struct {
	Attempts    uint64 `json:"attempts"`
	MessagesIn  uint64 `json:"messages_in"`
	MessagesOut uint64 `json:"messages_out"`
	Dropped     uint64 `json:"dropped"`
	Applied     uint64 `json:"applied"`
	Skipped     uint64 `json:"skipped"`
}

// Manager is driven entirely from the event loop and is not safe for
// concurrent use.
type Manager struct {
	log      log.Logger
	config   Config
	endpoint string
	dialer   Dialer
	sched    Scheduler
	events   event.Emitter
	decoder  *wire.Decoder
	sink     Applier

	state   State
	tr      Transport
	current *attempt
	retry   loop.Timer
	stopped bool
	stats   Stats
}

type attempt struct {
	m *Manager
	n uint64
}

func (a *attempt) OnOpen()                  { a.m.opened(a) }
func (a *attempt) OnMessage(payload []byte) { a.m.received(a, payload) }
func (a *attempt) OnError(err error)        { a.m.failed(a, err) }
func (a *attempt) OnClose(err error)        { a.m.closed(a, err) }

func NewManager(config Config, dialer Dialer, sched Scheduler, events event.Emitter, sink Applier) (*Manager, error) {
	ep, err := Endpoint(config.PageURL, config.Self)
	if err != nil {
		return nil, err
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	m := &Manager{config: config, endpoint: ep, dialer: dialer, sched: sched, events: events, sink: sink}
	m.log = log.DefaultLogger
	m.log.Context = log.NewContext(nil).Str("module", "link").Str("self", config.Self).Value()
	m.decoder = wire.NewDecoder()
	m.decoder.OnSkip = func(line []byte, err error) {
		m.stats.Skipped++
		m.log.Debug().Err(err).Int("len", len(line)).Msg("skipping record")
	}
	return m, nil
}

func (m *Manager) State() State {
	return m.state
}

func (m *Manager) Endpoint() string {
	return m.endpoint
}

func (m *Manager) Stats() Stats {
	return m.stats
}

// Connect opens a new connection. It does nothing unless the manager is
// Disconnected, so a retry racing a manual call dials once.
func (m *Manager) Connect() {
	if m.stopped || m.state != Disconnected {
		return
	}
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.stats.Attempts++
	a := &attempt{m: m, n: m.stats.Attempts}
	m.current = a
	m.setState(Connecting)
	m.log.Debug().Str("endpoint", m.endpoint).Uint64("attempt", a.n).Msg("connecting")
	m.tr = m.dialer.Open(m.endpoint, a)
}

// Send transmits rec when connected and reports whether it was handed to the
// transport. Anything sent while not connected is dropped.
func (m *Manager) Send(rec wire.Record) bool {
	if m.state != Connected || m.tr == nil {
		m.stats.Dropped++
		return false
	}
	data, err := wire.Encode(rec)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to encode record")
		m.stats.Dropped++
		return false
	}
	if err := m.tr.Send(data); err != nil {
		m.log.Warn().Err(err).Msg("send failed")
		m.stats.Dropped++
		return false
	}
	m.stats.MessagesOut++
	return true
}

// Stop cancels a pending retry and closes the transport. Used on shutdown.
func (m *Manager) Stop() {
	m.stopped = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.current = nil
	if m.tr != nil {
		_ = m.tr.Close()
		m.tr = nil
	}
	m.setState(Disconnected)
}

func (m *Manager) opened(a *attempt) {
	if a != m.current {
		return
	}
	m.log.Info().Str("endpoint", m.endpoint).Uint64("attempt", a.n).Msg("connected")
	m.setState(Connected)
}

func (m *Manager) received(a *attempt, payload []byte) {
	if a != m.current {
		return
	}
	m.stats.MessagesIn++
	m.decoder.Each(payload, func(rec wire.Record) {
		switch r := rec.(type) {
		case wire.LocationUpdate:
			m.stats.Applied++
			m.sink.Upsert(r.ParticipantID, r.Position)
		}
	})
}

// failed reports the error; the retry is armed by the close that follows.
func (m *Manager) failed(a *attempt, err error) {
	if a != m.current {
		return
	}
	m.log.Error().Err(err).Uint64("attempt", a.n).Msg("transport error")
	m.state = Disconnected
	m.emit(event.TopicLinkError, event.LinkError{Endpoint: m.endpoint, Err: err})
}

func (m *Manager) closed(a *attempt, err error) {
	if a != m.current {
		return
	}
	m.current = nil
	m.tr = nil
	m.state = Disconnected
	m.log.Warn().Err(err).Uint64("attempt", a.n).Dur("retry_in", m.config.RetryDelay).Msg("disconnected")
	m.emit(event.TopicLinkState, event.LinkState{State: Disconnected.String(), Endpoint: m.endpoint, Attempt: a.n})
	m.armRetry()
}

func (m *Manager) armRetry() {
	if m.stopped {
		return
	}
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = m.sched.AfterFunc(m.config.RetryDelay, func() {
		m.retry = nil
		m.Connect()
	})
}

func (m *Manager) setState(s State) {
	if s == m.state {
		return
	}
	m.state = s
	m.emit(event.TopicLinkState, event.LinkState{State: s.String(), Endpoint: m.endpoint, Attempt: m.stats.Attempts})
}

func (m *Manager) emit(topic string, data interface{}) {
	if err := m.events.Emit(context.Background(), topic, data); err != nil {
		m.log.Error().Err(err).Str("topic", topic).Msg("unable to emit event")
	}
}
