package reporter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mustafaturan/bus/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuha.dev/livetrace/internal/event"
	"nuha.dev/livetrace/internal/geo"
	"nuha.dev/livetrace/internal/status"
	"nuha.dev/livetrace/internal/wire"
)

type step struct {
	op string
	id string
	p  geo.Position
}

// journal records registry and link calls in one sequence to check ordering.
type journal struct {
	steps     []step
	connected bool
}

func (j *journal) Upsert(id string, p geo.Position) {
	j.steps = append(j.steps, step{"upsert", id, p})
}

func (j *journal) Send(rec wire.Record) bool {
	if !j.connected {
		return false
	}
	u := rec.(wire.LocationUpdate)
	j.steps = append(j.steps, step{"send", u.ParticipantID, u.Position})
	return true
}

func newBus(t *testing.T) *bus.Bus {
	b, err := event.NewBus(1)
	require.NoError(t, err)
	return b
}

func TestSampleLocalFirst(t *testing.T) {
	j := &journal{connected: true}
	r := New("me", j, j, newBus(t))
	p := geo.Position{Lat: 1, Lng: 2, Accuracy: 7, Timestamp: 1700000000}

	r.OnSample(p)

	assert.Equal(t, []step{{"upsert", "me", p}, {"send", "me", p}}, j.steps)
}

func TestSampleWhileDisconnected(t *testing.T) {
	j := &journal{}
	r := New("me", j, j, newBus(t))
	r.OnSample(geo.Position{Lat: 1, Lng: 2})
	r.OnSample(geo.Position{Lat: 3, Lng: 4})

	require.Len(t, j.steps, 2)
	for _, s := range j.steps {
		assert.Equal(t, "upsert", s.op)
	}

	j.connected = true
	r.OnSample(geo.Position{Lat: 5, Lng: 6})
	assert.Len(t, j.steps, 4, "earlier samples are not replayed")
}

func TestSampleAccuracyNormalised(t *testing.T) {
	j := &journal{connected: true}
	r := New("me", j, j, newBus(t))
	r.OnSample(geo.Position{Lat: 1, Lng: 2, Accuracy: -1})
	assert.Equal(t, 0.0, j.steps[0].p.Accuracy)
	assert.Equal(t, 0.0, j.steps[1].p.Accuracy)
}

func TestErrorReasons(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&geo.Error{Code: geo.PermissionDenied, Message: "User denied Geolocation"}, "Location error: PERMISSION_DENIED - User denied Geolocation"},
		{&geo.Error{Code: geo.PositionUnavailable, Message: "no fix"}, "Location error: POSITION_UNAVAILABLE - no fix"},
		{fmt.Errorf("watch: %w", &geo.Error{Code: geo.Timeout, Message: "Timeout expired"}), "Location error: TIMEOUT - Timeout expired"},
		{&geo.Error{Code: 42, Message: "odd"}, "Location error: UNKNOWN_ERROR - odd"},
		{errors.New("device unplugged"), "Location error: UNKNOWN_ERROR - device unplugged"},
	}
	for _, c := range cases {
		b := newBus(t)
		board := status.NewBoard()
		board.Attach(b)
		j := &journal{}
		r := New("me", j, j, b)

		r.OnError(c.err)
		assert.Equal(t, c.want, board.Text())
		assert.Empty(t, j.steps)
	}
}

func TestErrorEventPayload(t *testing.T) {
	b := newBus(t)
	var got []event.GeoError
	b.RegisterHandler("test", bus.Handler{Matcher: "^geo\\.", Handle: func(ctx context.Context, e bus.Event) {
		got = append(got, e.Data.(event.GeoError))
	}})
	j := &journal{}
	New("me", j, j, b).OnError(&geo.Error{Code: geo.Timeout, Message: "slow"})
	assert.Equal(t, []event.GeoError{{Reason: "TIMEOUT", Message: "slow"}}, got)
}
