// Package sim is a position source that walks a simulated device around a
// center point, one step per interval.
package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/phuslu/log"

	"nuha.dev/livetrace/internal/geo"
)

type Config struct {
	Lat      float64
	Lng      float64
	Spread   float64
	Interval time.Duration
	Seed     int64
}

type Walker struct {
	log   log.Logger
	rnd   *rand.Rand
	conf  Config
	lat   float64
	lng   float64
	step  float64
	angle float64
	now   func() time.Time
}

func NewWalker(conf Config) *Walker {
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	o := &Walker{conf: conf, rnd: rand.New(rand.NewSource(seed)), now: time.Now}
	o.log = log.DefaultLogger
	o.log.Context = log.NewContext(nil).Str("module", "sim").Value()
	o.lat = conf.Lat + (o.rnd.Float64()*2-1)*conf.Spread
	o.lng = conf.Lng + (o.rnd.Float64()*2-1)*conf.Spread
	o.step = 0.0002 + o.rnd.Float64()*0.0003
	o.angle = o.rnd.Float64() * 2 * math.Pi
	return o
}

// Next advances the walk by one step, wobbling the heading slightly.
func (w *Walker) Next() geo.Position {
	w.angle += (w.rnd.Float64()*2 - 1) * 0.05
	w.lat += math.Sin(w.angle) * w.step
	w.lng += math.Cos(w.angle) * w.step
	if !geo.ValidLatLng(w.lat, w.lng) {
		w.angle += math.Pi
		w.lat = math.Max(-90, math.Min(90, w.lat))
		w.lng = math.Max(-180, math.Min(180, w.lng))
	}
	return geo.Position{
		Lat:       w.lat,
		Lng:       w.lng,
		Accuracy:  5 + w.rnd.Float64()*5,
		Timestamp: w.now().Unix(),
	}
}

func (w *Walker) Watch(ctx context.Context, onSample func(geo.Position), onError func(error)) {
	interval := w.conf.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	w.log.Debug().Float64("lat", w.lat).Float64("lng", w.lng).Dur("interval", interval).Msg("walk started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onSample(w.Next())
		}
	}
}
