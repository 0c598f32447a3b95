// Package event carries connection and position-source lifecycle events
// between the engine and its observers.
package event

import (
	"context"
	"fmt"

	"github.com/mustafaturan/bus/v3"
	"github.com/mustafaturan/monoton/v2"
	"github.com/mustafaturan/monoton/v2/sequencer"
)

const (
	TopicLinkState string = "link.state"
	TopicLinkError string = "link.error"
	TopicGeoError  string = "geo.error"
)

// 2020-01-01T00:00:00Z in milliseconds, the epoch of event ids.
const idEpoch uint64 = 1577836800000

type LinkState struct {
	State    string `json:"state"`
	Endpoint string `json:"endpoint"`
	Attempt  uint64 `json:"attempt"`
}

type LinkError struct {
	Endpoint string `json:"endpoint"`
	Err      error  `json:"-"`
}

type GeoError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Emitter is satisfied by *bus.Bus.
type Emitter interface {
	Emit(ctx context.Context, topic string, data interface{}) error
}

// NewBus returns a bus with all topics registered. Handlers run synchronously
// inside Emit, on the emitter's goroutine.
func NewBus(node uint64) (*bus.Bus, error) {
	m, err := monoton.New(sequencer.NewMillisecond(), node, idEpoch)
	if err != nil {
		return nil, fmt.Errorf("event id generator: %w", err)
	}
	var next bus.Next = m.Next
	b, err := bus.NewBus(next)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	b.RegisterTopics(TopicLinkState, TopicLinkError, TopicGeoError)
	return b, nil
}
