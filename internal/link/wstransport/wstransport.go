// Package wstransport connects the link manager to the server over
// nhooyr.io/websocket. Every connection event is posted to the event loop.
package wstransport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/phuslu/log"
	"nhooyr.io/websocket"

	"nuha.dev/livetrace/internal/link"
)

var (
	ErrClosed     = errors.New("transport closed")
	ErrBufferFull = errors.New("send buffer full")
)

type Poster interface {
	Post(fn func()) bool
}

type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	SendBuffer   int
}

type Dialer struct {
	log    log.Logger
	loop   Poster
	config Config
}

func NewDialer(loop Poster, config Config) *Dialer {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.ReadLimit <= 0 {
		config.ReadLimit = 1 << 20
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 64
	}
	d := &Dialer{loop: loop, config: config}
	d.log = log.DefaultLogger
	d.log.Context = log.NewContext(nil).Str("module", "wstransport").Value()
	return d
}

func (d *Dialer) Open(endpoint string, l link.Listener) link.Transport {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{d: d, l: l, endpoint: endpoint, ctx: ctx, cancel: cancel}
	c.send = make(chan []byte, d.config.SendBuffer)
	go c.run()
	return c
}

type Conn struct {
	d        *Dialer
	l        link.Listener
	endpoint string
	ctx      context.Context
	cancel   context.CancelFunc
	send     chan []byte

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

func (c *Conn) post(fn func()) {
	c.d.loop.Post(fn)
}

func (c *Conn) run() {
	dctx, dcancel := context.WithTimeout(c.ctx, c.d.config.DialTimeout)
	ws, _, err := websocket.Dial(dctx, c.endpoint, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	dcancel()
	if err != nil {
		c.d.log.Debug().Err(err).Str("endpoint", c.endpoint).Msg("dial failed")
		c.post(func() { c.l.OnError(err) })
		c.post(func() { c.l.OnClose(err) })
		return
	}
	ws.SetReadLimit(c.d.config.ReadLimit)

	c.mu.Lock()
	c.ws = ws
	closed := c.closed
	c.mu.Unlock()
	if closed {
		_ = ws.Close(websocket.StatusNormalClosure, "")
		return
	}

	c.post(func() { c.l.OnOpen() })
	go c.writeLoop(ws)
	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	defer c.cancel()
	for {
		_, data, err := ws.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				c.post(func() { c.l.OnError(err) })
			}
			c.post(func() { c.l.OnClose(err) })
			return
		}
		c.post(func() { c.l.OnMessage(data) })
	}
}

func (c *Conn) writeLoop(ws *websocket.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(c.ctx, c.d.config.WriteTimeout)
			err := ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.d.log.Error().Err(err).Msg("error while writing to connection")
				_ = ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Send queues data for the writer without blocking.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close starts a normal close handshake in the background.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		c.cancel()
		return nil
	}
	go func() {
		_ = ws.Close(websocket.StatusNormalClosure, "")
		c.cancel()
	}()
	return nil
}
