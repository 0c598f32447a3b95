// Package wire frames and parses the location stream. The server batches
// several JSON objects into one message separated by '\n'.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"nuha.dev/livetrace/internal/geo"
)

var (
	ErrMalformed   = errors.New("malformed record")
	ErrUnknownType = errors.New("unknown record type")
	ErrInvalid     = errors.New("invalid record")
)

var errUnsupported = errors.New("unsupported record")

// Decoder turns one payload into records. Every line is parsed on its own and
// a line that fails (ErrMalformed, ErrUnknownType, ErrInvalid) is skipped
// without affecting its siblings. OnSkip, when set, sees each skipped line.
type Decoder struct {
	validate *validator.Validate
	OnSkip   func(line []byte, err error)
}

func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New()}
}

func (d *Decoder) Decode(payload []byte) []Record {
	recs := make([]Record, 0, bytes.Count(payload, []byte{'\n'})+1)
	d.Each(payload, func(r Record) {
		recs = append(recs, r)
	})
	return recs
}

// Each calls fn for every accepted record, in line order.
func (d *Decoder) Each(payload []byte, fn func(Record)) {
	for _, line := range bytes.Split(payload, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec, err := d.parse(line)
		if err != nil {
			if d.OnSkip != nil {
				d.OnSkip(line, err)
			}
			continue
		}
		fn(rec)
	}
}

func (d *Decoder) parse(line []byte) (Record, error) {
	var msg inboundMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type != TypeLocation {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	if err := d.validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return LocationUpdate{
		ParticipantID: msg.UserID,
		Position: geo.Position{
			Lat:       *msg.Lat,
			Lng:       *msg.Lng,
			Accuracy:  geo.NormAccuracy(msg.Accuracy),
			Timestamp: msg.TS,
		},
	}, nil
}

func EncodeLocation(id string, p geo.Position) ([]byte, error) {
	return json.Marshal(LocationMessage{
		Type:     TypeLocation,
		UserID:   id,
		Lat:      p.Lat,
		Lng:      p.Lng,
		Accuracy: p.Accuracy,
		TS:       p.Timestamp,
	})
}

func Encode(rec Record) ([]byte, error) {
	switch r := rec.(type) {
	case LocationUpdate:
		return EncodeLocation(r.ParticipantID, r.Position)
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupported, rec)
	}
}
