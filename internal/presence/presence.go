// Package presence keeps the last known position of every participant seen
// during the session and mirrors it onto a rendering surface.
package presence

import (
	"sort"

	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/geo"
)

const SelfLabel = "You"

// Surface draws participant markers. Implementations are called from the
// event loop only.
type Surface interface {
	AddMarker(id string, label string, p geo.Position)
	MoveMarker(id string, p geo.Position)
	Center(p geo.Position)
}

type Entry struct {
	ID       string
	Last     geo.Position
	Self     bool
	Centered bool
}

// Registry is not safe for concurrent use; it is owned by the event loop.
type Registry struct {
	log     log.Logger
	self    string
	surface Surface
	entries map[string]*Entry
}

func NewRegistry(self string, surface Surface) *Registry {
	r := &Registry{self: self, surface: surface}
	r.log = log.DefaultLogger
	r.log.Context = log.NewContext(nil).Str("module", "presence").Value()
	r.entries = make(map[string]*Entry)
	return r
}

func (r *Registry) Self() string {
	return r.self
}

// Upsert records p as the latest position of id. The first sighting of an id
// creates its marker; later ones move it. The first self position also
// centers the view, once per registry.
func (r *Registry) Upsert(id string, p geo.Position) {
	e, ok := r.entries[id]
	if !ok {
		e = &Entry{ID: id, Last: p, Self: id == r.self}
		r.entries[id] = e
		label := id
		if e.Self {
			label = SelfLabel
		}
		r.log.Debug().Str("participant", id).Bool("self", e.Self).Msg("new participant")
		r.surface.AddMarker(id, label, p)
	} else {
		e.Last = p
		r.surface.MoveMarker(id, p)
	}

	if e.Self && !e.Centered {
		e.Centered = true
		r.log.Trace().Float64("lat", p.Lat).Float64("lng", p.Lng).Msg("centering view on self")
		r.surface.Center(p)
	}
}

func (r *Registry) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of all entries ordered by id.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
