package web

import (
	"sort"

	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/geo"
)

const DefaultZoom = 15

type Marker struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"ts"`
	Moves     uint64  `json:"moves"`
}

type Center struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

type Snapshot struct {
	Markers []Marker `json:"markers"`
	Center  *Center  `json:"center,omitempty"`
}

// Map is an in-memory rendering surface. Like the registry that drives it,
// it is touched only from the event loop.
type Map struct {
	log     log.Logger
	markers map[string]*Marker
	center  *Center
	zoom    int
}

func NewMap(zoom int) *Map {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	m := &Map{zoom: zoom}
	m.log = log.DefaultLogger
	m.log.Context = log.NewContext(nil).Str("module", "map").Value()
	m.markers = make(map[string]*Marker)
	return m
}

func (m *Map) AddMarker(id string, label string, p geo.Position) {
	m.markers[id] = &Marker{ID: id, Label: label, Latitude: p.Lat, Longitude: p.Lng, Accuracy: p.Accuracy, Timestamp: p.Timestamp}
}

func (m *Map) MoveMarker(id string, p geo.Position) {
	mk, ok := m.markers[id]
	if !ok {
		m.log.Warn().Str("participant", id).Msg("move for unknown marker")
		return
	}
	mk.Latitude, mk.Longitude = p.Lat, p.Lng
	mk.Accuracy, mk.Timestamp = p.Accuracy, p.Timestamp
	mk.Moves++
}

func (m *Map) Center(p geo.Position) {
	m.center = &Center{Latitude: p.Lat, Longitude: p.Lng, Zoom: m.zoom}
}

func (m *Map) Snapshot() Snapshot {
	s := Snapshot{Markers: make([]Marker, 0, len(m.markers))}
	for _, mk := range m.markers {
		s.Markers = append(s.Markers, *mk)
	}
	sort.Slice(s.Markers, func(i, j int) bool { return s.Markers[i].ID < s.Markers[j].ID })
	if m.center != nil {
		c := *m.center
		s.Center = &c
	}
	return s
}
