// Package relay republishes lifecycle events of one participant to NATS so
// that operators can watch many clients from one place.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mustafaturan/bus/v3"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nuha.dev/livetrace/internal/event"
)

const handlerKey = "relay.nats"

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Message struct {
	ID    string      `json:"id"`
	Topic string      `json:"topic"`
	Self  string      `json:"self"`
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`
}

type Relay struct {
	logger  zerolog.Logger
	pub     Publisher
	subject string
	self    string
}

func New(pub Publisher, subject string, self string) *Relay {
	r := &Relay{pub: pub, self: self}
	r.subject = subject + "." + token(self)
	r.logger = log.With().Str("module", "relay").Str("subject", r.subject).Logger()
	return r
}

func (r *Relay) Subject() string {
	return r.subject
}

func (r *Relay) Attach(eb *bus.Bus) {
	eb.RegisterHandler(handlerKey, bus.Handler{
		Matcher: ".*",
		Handle:  r.handle,
	})
}

func (r *Relay) handle(ctx context.Context, e bus.Event) {
	msg := Message{ID: e.ID, Topic: e.Topic, Self: r.self, Data: e.Data}
	if le, ok := e.Data.(event.LinkError); ok && le.Err != nil {
		msg.Error = le.Err.Error()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Err(err).Str("topic", e.Topic).Msg("unable to encode event")
		return
	}
	if err := r.pub.Publish(r.subject, data); err != nil {
		r.logger.Warn().Err(err).Str("topic", e.Topic).Msg("publish failed")
		return
	}
	r.logger.Debug().Str("topic", e.Topic).Str("id", e.ID).Msg("relayed")
}

// Dial connects to NATS and keeps reconnecting for as long as the process
// runs.
func Dial(url string, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

// token makes id usable as a single subject token.
func token(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}
