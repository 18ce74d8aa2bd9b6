package realtime

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrSendBufferFull = errors.New("send-buffer-full")
	ErrClientClosed   = errors.New("client-closed")
)

const sendBuffer = 256

// Client is one websocket connection of a player. Writes go through inbox so
// only WritePump touches the socket's write side.
type Client struct {
	id          string
	name        string
	socket      WebsocketConnection
	rateLimiter *rate.Limiter
	inbox       chan []byte
	pingChan    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(id, name string, socket WebsocketConnection) *Client {
	return &Client{
		id:          id,
		name:        name,
		socket:      socket,
		rateLimiter: rate.NewLimiter(5, 10),
		inbox:       make(chan []byte, sendBuffer),
		pingChan:    make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Send queues data without blocking. A client that cannot keep up loses the
// frame; room state is never rolled back for it.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.inbox <- data:
		return nil
	default:
		log.Warn().Str("player_id", c.id).Msg("send buffer full, dropping frame")
		return ErrSendBufferFull
	}
}

// Ping asks WritePump to ping the peer; the pong extends the read deadline.
func (c *Client) Ping() {
	select {
	case c.pingChan <- struct{}{}:
	default:
	}
}

func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.socket.Close(reason)
	})
}

// ReadPump decodes frames and hands them to handle until the socket fails.
func (c *Client) ReadPump(handle func(*Client, Frame)) {
	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			log.Debug().Err(err).Str("player_id", c.id).Msg("dropping malformed frame")
			continue
		}
		if !c.rateLimiter.Allow() {
			c.Send(failureFrame(frame.RequestID, ErrRateLimited))
			continue
		}
		handle(c, frame)
	}
}

func (c *Client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.inbox:
			if err := c.socket.Write(data); err != nil {
				c.Close("")
				return
			}
		case <-c.pingChan:
			if err := c.socket.Ping(); err != nil {
				c.Close("")
				return
			}
		}
	}
}
