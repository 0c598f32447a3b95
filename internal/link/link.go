package link

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"nuha.dev/livetrace/internal/geo"
	"nuha.dev/livetrace/internal/loop"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener receives the events of one connection attempt, on the event loop.
// An error is always followed by a close; a clean close comes alone.
type Listener interface {
	OnOpen()
	OnMessage(payload []byte)
	OnError(err error)
	OnClose(err error)
}

type Transport interface {
	Send(data []byte) error
	Close() error
}

// Dialer starts a connection and returns immediately. It must not call the
// listener before Open returns.
type Dialer interface {
	Open(endpoint string, l Listener) Transport
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) loop.Timer
}

// Applier receives every decoded location record.
type Applier interface {
	Upsert(id string, p geo.Position)
}

const wsPath = "/ws"

var errNoHost = errors.New("page url has no host")

// Endpoint derives the stream address from the page the client is served
// from: wss for an https page, ws otherwise.
func Endpoint(pageURL string, id string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", errNoHost, pageURL)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	ep := url.URL{Scheme: scheme, Host: u.Host, Path: wsPath, RawQuery: "userId=" + url.QueryEscape(id)}
	return ep.String(), nil
}
