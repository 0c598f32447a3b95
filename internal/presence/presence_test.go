package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuha.dev/livetrace/internal/geo"
)

type call struct {
	op    string
	id    string
	label string
	pos   geo.Position
}

type mockSurface struct {
	calls []call
}

func (m *mockSurface) AddMarker(id string, label string, p geo.Position) {
	m.calls = append(m.calls, call{op: "add", id: id, label: label, pos: p})
}

func (m *mockSurface) MoveMarker(id string, p geo.Position) {
	m.calls = append(m.calls, call{op: "move", id: id, pos: p})
}

func (m *mockSurface) Center(p geo.Position) {
	m.calls = append(m.calls, call{op: "center", pos: p})
}

func (m *mockSurface) ops(op string) []call {
	var out []call
	for _, c := range m.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func pos(lat, lng float64) geo.Position {
	return geo.Position{Lat: lat, Lng: lng}
}

func TestUpsertCreatesThenMoves(t *testing.T) {
	s := &mockSurface{}
	r := NewRegistry("me", s)

	r.Upsert("other", pos(1, 2))
	r.Upsert("other", pos(1, 2))

	require.Equal(t, 1, r.Len())
	assert.Equal(t, []call{
		{op: "add", id: "other", label: "other", pos: pos(1, 2)},
		{op: "move", id: "other", pos: pos(1, 2)},
	}, s.calls)

	e, ok := r.Get("other")
	require.True(t, ok)
	assert.False(t, e.Self)
	assert.False(t, e.Centered)
}

func TestSelfLabelAndCenterOnce(t *testing.T) {
	s := &mockSurface{}
	r := NewRegistry("me", s)

	r.Upsert("me", pos(10, 20))
	r.Upsert("me", pos(11, 21))
	r.Upsert("me", pos(12, 22))

	assert.Equal(t, []call{{op: "center", pos: pos(10, 20)}}, s.ops("center"))
	assert.Equal(t, []call{{op: "add", id: "me", label: SelfLabel, pos: pos(10, 20)}}, s.ops("add"))
	assert.Len(t, s.ops("move"), 2)

	// marker first, then the view
	assert.Equal(t, "add", s.calls[0].op)
	assert.Equal(t, "center", s.calls[1].op)

	e, _ := r.Get("me")
	assert.True(t, e.Self)
	assert.True(t, e.Centered)
	assert.Equal(t, pos(12, 22), e.Last)
}

func TestOthersNeverCenter(t *testing.T) {
	s := &mockSurface{}
	r := NewRegistry("me", s)
	r.Upsert("a", pos(1, 1))
	r.Upsert("b", pos(2, 2))
	r.Upsert("a", pos(3, 3))
	assert.Empty(t, s.ops("center"))

	r.Upsert("me", pos(4, 4))
	assert.Len(t, s.ops("center"), 1)
}

func TestLastWriteWins(t *testing.T) {
	r := NewRegistry("me", &mockSurface{})
	r.Upsert("a", geo.Position{Lat: 5, Lng: 5, Timestamp: 200})
	r.Upsert("a", geo.Position{Lat: 4, Lng: 4, Timestamp: 100})
	e, _ := r.Get("a")
	assert.Equal(t, int64(100), e.Last.Timestamp)
}

func TestEntriesSorted(t *testing.T) {
	r := NewRegistry("me", &mockSurface{})
	r.Upsert("c", pos(1, 1))
	r.Upsert("a", pos(1, 1))
	r.Upsert("me", pos(1, 1))
	r.Upsert("b", pos(1, 1))

	var got []string
	for _, e := range r.Entries() {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "me"}, got)

	_, ok := r.Get("zzz")
	assert.False(t, ok)
}
