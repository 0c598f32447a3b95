// Package reporter bridges the position source to the engine: every sample is
// shown locally first and then offered to the link.
package reporter

import (
	"context"
	"errors"

	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/event"
	"nuha.dev/livetrace/internal/geo"
	"nuha.dev/livetrace/internal/wire"
)

type Upserter interface {
	Upsert(id string, p geo.Position)
}

type Sender interface {
	Send(rec wire.Record) bool
}

type Reporter struct {
	log    log.Logger
	self   string
	reg    Upserter
	link   Sender
	events event.Emitter
}

func New(self string, reg Upserter, link Sender, events event.Emitter) *Reporter {
	r := &Reporter{self: self, reg: reg, link: link, events: events}
	r.log = log.DefaultLogger
	r.log.Context = log.NewContext(nil).Str("module", "reporter").Value()
	return r
}

// OnSample must run on the event loop. The local marker never waits for the
// network; a sample the link cannot send is gone.
func (r *Reporter) OnSample(p geo.Position) {
	p.Accuracy = geo.NormAccuracy(p.Accuracy)
	r.reg.Upsert(r.self, p)
	if !r.link.Send(wire.LocationUpdate{ParticipantID: r.self, Position: p}) {
		r.log.Trace().Float64("lat", p.Lat).Float64("lng", p.Lng).Msg("sample not sent")
	}
}

// OnError reports a position source failure. The source keeps running on its
// own; nothing is retried here.
func (r *Reporter) OnError(err error) {
	code := geo.Code(0)
	msg := err.Error()
	var gerr *geo.Error
	if errors.As(err, &gerr) {
		code = gerr.Code
		msg = gerr.Message
	}
	r.log.Warn().Err(err).Str("reason", code.Reason()).Msg("position source error")
	if err := r.events.Emit(context.Background(), event.TopicGeoError, event.GeoError{Reason: code.Reason(), Message: msg}); err != nil {
		r.log.Error().Err(err).Msg("unable to emit event")
	}
}
