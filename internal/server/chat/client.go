// Package chat implements the session core: the per-connection state
// machine, the message router, and the TCP server that ties them to the
// registry and auth service.
package chat

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Client wraps one accepted connection. All outbound traffic goes through
// a bounded queue drained by a single writer goroutine, so messages from
// one sender to this connection arrive in the order they were enqueued.
// A full queue blocks the enqueuer (backpressure from a slow receiver)
// until either space frees up or the connection closes.
type Client struct {
	conn         net.Conn
	remoteAddr   string
	out          chan string
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newClient(conn net.Conn, queueLen int, writeTimeout time.Duration) *Client {
	c := &Client{
		conn:         conn,
		remoteAddr:   conn.RemoteAddr().String(),
		out:          make(chan string, queueLen),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go c.writeLoop()
	return c
}

// RemoteAddr returns the peer address for logging.
func (c *Client) RemoteAddr() string { return c.remoteAddr }

// Deliver enqueues one protocol line. It blocks while the queue is full
// and fails once the connection has closed, so no caller can hang on a
// disconnected peer.
func (c *Client) Deliver(line string) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case <-c.done:
		return net.ErrClosed
	case c.out <- line:
		return nil
	}
}

// Close initiates shutdown and wakes any blocked Deliver calls. The
// writer goroutine flushes lines queued before the call, then releases
// the connection. Safe to call multiple times from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			c.flush()
			return
		case line := <-c.out:
			if err := c.write(line); err != nil {
				// A stuck or gone receiver is fatal for its own session.
				c.Close()
				return
			}
		}
	}
}

// flush drains whatever was queued before shutdown started.
func (c *Client) flush() {
	for {
		select {
		case line := <-c.out:
			if c.write(line) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(line string) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	return err
}
