package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

// startKeepAliveLocked starts the liveness prober for the given transport
// generation. Any prober from an earlier generation is stopped first, so a
// stale timer can never fire against a superseded transport.
func (c *Client) startKeepAliveLocked(gen int, conn *websocket.Conn) {
	c.stopKeepAliveLocked()
	stop := make(chan struct{})
	c.keepaliveStop = stop
	interval := c.cfg.KeepAliveInterval
	timeout := c.cfg.WriteTimeout

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !c.transportCurrent(gen) {
					return
				}
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
					c.log.Debug().Err(err).Msg("keep-alive probe failed")
				}
			}
		}
	}()
}

// stopKeepAliveLocked cancels the liveness prober, if running.
func (c *Client) stopKeepAliveLocked() {
	if c.keepaliveStop != nil {
		close(c.keepaliveStop)
		c.keepaliveStop = nil
	}
}

// transportCurrent reports whether gen is still the live transport
// generation and the connection is open.
func (c *Client) transportCurrent(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped && gen == c.gen && c.conn != nil
}
