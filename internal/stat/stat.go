// Package stat keeps a short history of the link: the latest connect,
// disconnect and failure times and the number of remote updates per minute.
package stat

import (
	"context"
	"time"

	"github.com/mustafaturan/bus/v3"

	"nuha.dev/livetrace/internal/event"
)

const handlerKey = "stat.link"

type timeEvent struct {
	list [10]time.Time
	idx  int
	n    int
}

func (l *timeEvent) add(t time.Time) {
	l.list[l.idx] = t
	l.idx = l.idx + 1
	if l.idx == len(l.list) {
		l.idx = 0
	}
	if l.n < len(l.list) {
		l.n++
	}
}

// recent returns the recorded times, newest first.
func (l *timeEvent) recent() []time.Time {
	out := make([]time.Time, 0, l.n)
	for i := 1; i <= l.n; i++ {
		out = append(out, l.list[(l.idx-i+len(l.list))%len(l.list)])
	}
	return out
}

type Counter struct {
	Base  time.Time `json:"base"`
	Count uint64    `json:"count"`
}

type Snapshot struct {
	Connects    []time.Time `json:"connects"`
	Disconnects []time.Time `json:"disconnects"`
	Failures    []time.Time `json:"failures"`
	Updates     []Counter   `json:"updates"`
}

// Stat is fed from bus handlers and the inbound path, both on the event
// loop, so it carries no lock.
type Stat struct {
	connect    timeEvent
	disconnect timeEvent
	failure    timeEvent
	buf        [60]Counter
	phead      int
	dur        time.Duration
	now        func() time.Time
}

func NewStat() *Stat {
	o := &Stat{}
	o.dur = time.Minute
	o.now = time.Now
	return o
}

func (s *Stat) Attach(eb *bus.Bus) {
	eb.RegisterHandler(handlerKey, bus.Handler{
		Matcher: "^link\\.",
		Handle:  s.handle,
	})
}

func (s *Stat) handle(ctx context.Context, e bus.Event) {
	switch d := e.Data.(type) {
	case event.LinkState:
		switch d.State {
		case "Connected":
			s.connect.add(s.now())
		case "Disconnected":
			s.disconnect.add(s.now())
		}
	case event.LinkError:
		s.failure.add(s.now())
	}
}

// CounterIncr adds amt to the bucket holding t. Times older than the newest
// bucket are ignored.
func (s *Stat) CounterIncr(amt uint64, t time.Time) {
	f := t.Truncate(s.dur)
	last := &s.buf[s.phead]
	if f.After(last.Base) {
		if last.Count != 0 {
			s.phead = s.phead + 1
			if s.phead == len(s.buf) {
				s.phead = 0
			}
		}
		s.buf[s.phead].Base = f
		s.buf[s.phead].Count = amt
	} else if f.Equal(last.Base) {
		last.Count = last.Count + amt
	}
}

// Incr counts one update now.
func (s *Stat) Incr() {
	s.CounterIncr(1, s.now())
}

func (s *Stat) Snapshot() Snapshot {
	snap := Snapshot{
		Connects:    s.connect.recent(),
		Disconnects: s.disconnect.recent(),
		Failures:    s.failure.recent(),
	}
	for i := 1; i <= len(s.buf); i++ {
		c := s.buf[(s.phead+i)%len(s.buf)]
		if c.Count != 0 {
			snap.Updates = append(snap.Updates, c)
		}
	}
	return snap
}
