package wire

import "nuha.dev/livetrace/internal/geo"

const (
	TypeLocation string = "location"
)

// LocationMessage is the outbound wire record, one JSON object per send.
type LocationMessage struct {
	Type     string  `json:"type"`
	UserID   string  `json:"userId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
	TS       int64   `json:"ts"`
}

type inboundMessage struct {
	Type     string   `json:"type"`
	UserID   string   `json:"userId" validate:"required"`
	Lat      *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng      *float64 `json:"lng" validate:"required,min=-180,max=180"`
	Accuracy float64  `json:"accuracy"`
	TS       int64    `json:"ts"`
}

// Record is one decoded inbound event.
type Record interface {
	Kind() string
}

type LocationUpdate struct {
	ParticipantID string
	Position      geo.Position
}

func (LocationUpdate) Kind() string { return TypeLocation }
