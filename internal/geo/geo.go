package geo

import (
	"context"
	"fmt"
	"math"
)

type Position struct {
	Lat       float64
	Lng       float64
	Accuracy  float64
	Timestamp int64
}

func ValidLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// NormAccuracy clamps a missing or negative accuracy to 0.
func NormAccuracy(a float64) float64 {
	if math.IsNaN(a) || a < 0 {
		return 0
	}
	return a
}

func (p Position) String() string {
	return fmt.Sprintf("(%g,%g)", p.Lat, p.Lng)
}

type Code int

const (
	PermissionDenied    Code = 1
	PositionUnavailable Code = 2
	Timeout             Code = 3
)

func (c Code) Reason() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is a failure reported by a position source.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Code.Reason() + ": " + e.Message
}

// Source delivers samples and failures until ctx is done. Callbacks may be
// invoked from any goroutine.
type Source interface {
	Watch(ctx context.Context, onSample func(Position), onError func(error))
}
