// Package status keeps the single human-readable status line shown to the
// user. It is rewritten on every relevant event and keeps no history.
package status

import (
	"context"
	"fmt"

	"github.com/mustafaturan/bus/v3"
	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/event"
)

const (
	Initial      = "Connecting"
	Connected    = "Connected"
	Disconnected = "Disconnected (retrying)"
	LinkFault    = "Connection error"
)

const handlerKey = "status.board"

// Board is updated from bus handlers and therefore lives on the event loop.
type Board struct {
	log  log.Logger
	text string
}

func NewBoard() *Board {
	b := &Board{text: Initial}
	b.log = log.DefaultLogger
	b.log.Context = log.NewContext(nil).Str("module", "status").Value()
	return b
}

func (b *Board) Text() string {
	return b.text
}

func (b *Board) set(s string) {
	if s == b.text {
		return
	}
	b.text = s
	b.log.Info().Str("status", s).Msg("")
}

func (b *Board) Attach(eb *bus.Bus) {
	eb.RegisterHandler(handlerKey, bus.Handler{
		Matcher: ".*",
		Handle:  b.handle,
	})
}

func (b *Board) handle(ctx context.Context, e bus.Event) {
	switch d := e.Data.(type) {
	case event.LinkState:
		switch d.State {
		case "Connected":
			b.set(Connected)
		case "Disconnected":
			b.set(Disconnected)
		}
	case event.LinkError:
		b.set(LinkFault)
	case event.GeoError:
		b.set(fmt.Sprintf("Location error: %s - %s", d.Reason, d.Message))
	}
}
