// Package rpcclient implements the client side of the transport
// described in §4.2: one TCP socket to a peer, a background reply
// reader, XID-keyed request/reply correlation, and bounded retry with
// serialized reconnect.
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/wire"
)

// CallTimeout is the bounded wait for a single call attempt, per §4.2.
const CallTimeout = 2500 * time.Millisecond

// MaxAttempts is the total number of attempts (the first try plus
// retries) before a call gives up.
const MaxAttempts = 4

// reconnectAfterAttempt is the attempt count after which a failure
// triggers a reconnect, per §4.2 ("after the second failed attempt").
const reconnectAfterAttempt = 2

// pendingCall is one in-flight request waiting for its reply.
type pendingCall struct {
	resultCh chan *wire.Frame
}

// Client is one transport instance: one TCP socket to addr plus a
// background reader goroutine that demultiplexes replies by XID.
type Client struct {
	addr string

	mu      sync.Mutex // guards conn, reader lifecycle, pending map
	conn    net.Conn
	pending map[uint32]*pendingCall
	nextXID uint32

	reconnectMu sync.Mutex // serializes reconnect attempts
	epoch       atomic.Uint64

	quitXID atomic.Uint32 // set by the caller of the last request

	readerDone chan struct{}
	closed     atomic.Bool
}

// Dial opens a transport to addr and starts its reply reader.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", addr, err)
	}

	c := &Client{
		addr:    addr,
		conn:    conn,
		pending: make(map[uint32]*pendingCall),
		nextXID: 1,
	}
	c.startReader()
	return c, nil
}

// Close shuts down the transport: it closes the socket, which unblocks
// the reader's pending read, and waits for the reader to exit. It does
// not set the quit XID; that is done only by SetQuitXID.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	done := c.readerDone
	c.mu.Unlock()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}
	if done != nil {
		<-done
	}
	return closeErr
}

// Call sends req and blocks until its reply arrives, the context is
// canceled, or every retry attempt is exhausted.
func (c *Client) Call(ctx context.Context, req wire.Request) (*wire.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		epoch := c.epoch.Load()
		resp, err := c.callOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		logger.WarnCtx(ctx, "rpc call attempt failed",
			logger.Attempt(attempt), logger.Err(err))

		if attempt == reconnectAfterAttempt {
			if rErr := c.reconnect(ctx, epoch); rErr != nil {
				return nil, fmt.Errorf("rpcclient: reconnect after attempt %d: %w", attempt, rErr)
			}
		}
	}
	return nil, fmt.Errorf("rpcclient: call failed after %d attempts: %w", MaxAttempts, lastErr)
}

func (c *Client) callOnce(ctx context.Context, req wire.Request) (*wire.Response, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, errors.New("rpcclient: not connected")
	}
	xid := c.nextXID
	c.nextXID++
	req.XID = xid
	call := &pendingCall{resultCh: make(chan *wire.Frame, 1)}
	c.pending[xid] = call
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, xid)
		c.mu.Unlock()
	}()

	body, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: encode request: %w", err)
	}
	if err := wire.WriteFrame(conn, xid, body); err != nil {
		return nil, fmt.Errorf("rpcclient: write frame: %w", err)
	}

	select {
	case frame := <-call.resultCh:
		resp, err := wire.DecodeResponse(frame.Body)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	case <-time.After(CallTimeout):
		return nil, fmt.Errorf("rpcclient: call xid=%d timed out after %s", xid, CallTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// reconnect closes the socket, drops the reader, and reopens the
// connection. It is serialized by reconnectMu and guarded by an epoch
// counter: a caller that observes the epoch already advanced past the
// value it read before failing skips the reconnect, so a flood of
// callers failing around the same time triggers at most one
// reconnection per failure epoch.
func (c *Client) reconnect(ctx context.Context, observedEpoch uint64) error {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	c.mu.Lock()
	currentEpoch := c.epoch.Load()
	if currentEpoch != observedEpoch {
		// Another caller already reconnected after we observed the failure.
		c.mu.Unlock()
		return nil
	}
	oldConn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if oldConn != nil {
		_ = oldConn.Close()
	}
	if c.readerDone != nil {
		<-c.readerDone
	}

	dialer := net.Dialer{Timeout: CallTimeout}
	newConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("redial %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.conn = newConn
	c.epoch.Add(1)
	c.mu.Unlock()

	c.startReader()
	return nil
}

// startReader spawns the background reply reader. Must be called with
// c.conn already set.
func (c *Client) startReader() {
	c.mu.Lock()
	conn := c.conn
	c.readerDone = make(chan struct{})
	done := c.readerDone
	c.mu.Unlock()

	go c.readLoop(conn, done)
}

func (c *Client) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}

		if q := c.quitXID.Load(); q != 0 && frame.XID == q {
			return
		}

		c.mu.Lock()
		call, ok := c.pending[frame.XID]
		c.mu.Unlock()
		if !ok {
			continue // unsolicited or unknown XID: drop the buffer
		}

		select {
		case call.resultCh <- frame:
		default:
		}
	}
}

// SetQuitXID records the XID of the final request this client will
// send; when the reader observes a reply carrying it, the reader exits
// cleanly instead of waiting on the next read.
func (c *Client) SetQuitXID(xid uint32) {
	c.quitXID.Store(xid)
}
