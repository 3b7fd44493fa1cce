// Package authclient implements the authentication client exchange
// (§4.5): a single request/response RPC to the auth server's port over
// a fresh TCP connection, using the same framing codec as the file
// share protocol.
package authclient

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sharewire/sharewire/internal/wire"
)

// TokenLength is the fixed size of the encrypted credential blob
// carried in an Authenticate call.
const TokenLength = 128

// Timeout bounds the entire exchange (dial plus the single
// request/response round trip), per §4.5.
const Timeout = 8 * time.Second

// Client talks to one auth server address. Unlike rpcclient.Client,
// each call opens its own connection; there is no persistent
// multiplexed transport to an auth server.
type Client struct {
	addr string
}

// New returns a client targeting addr (host:port, legacy port 9094).
func New(addr string) *Client {
	return &Client{addr: addr}
}

// Authenticate validates user against token, a TokenLength-byte
// encrypted credential blob. Any timeout or socket error is reported
// as authentication failure rather than propagated as a transport
// error, per §4.5.
func (c *Client) Authenticate(user string, token [TokenLength]byte) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return false, nil
	}
	defer conn.Close()

	req := wire.Request{
		Command: wire.CmdAuthenticate,
		Args:    []wire.Arg{wire.StringArg(user), wire.RawArg(token[:])},
	}
	resp, err := c.roundTrip(conn, req)
	if err != nil {
		return false, nil
	}
	return resp.Status == 0, nil
}

// WhichGroups returns user's group memberships. The wire exchange is a
// terminated sequence: for each group, a status prefix of ok followed
// by the group name, ending with a non-ok status.
func (c *Client) WhichGroups(user string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("authclient: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	req := wire.Request{
		Command: wire.CmdWhichGroups,
		Args:    []wire.Arg{wire.StringArg(user)},
	}
	body, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("authclient: encode request: %w", err)
	}
	if err := wire.WriteFrame(conn, 1, body); err != nil {
		return nil, fmt.Errorf("authclient: write request: %w", err)
	}

	var groups []string
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("authclient: read group frame: %w", err)
		}
		resp, err := wire.DecodeResponse(frame.Body)
		if err != nil {
			return nil, fmt.Errorf("authclient: decode group frame: %w", err)
		}
		if resp.Status != 0 {
			return groups, nil
		}
		name, err := (wire.Arg{Type: wire.ArgTypeRaw, Data: resp.Payload}).String()
		if err != nil {
			return nil, fmt.Errorf("authclient: decode group name: %w", err)
		}
		groups = append(groups, name)
	}
}

// ShareAdapter wraps a Client to satisfy pkg/share's AuthClient
// interface, which deals in plain strings rather than a fixed-length
// byte array: token is copied into a zero-padded TokenLength-byte blob
// (truncated if longer).
type ShareAdapter struct {
	*Client
}

// Authenticate implements share.AuthClient.
func (a ShareAdapter) Authenticate(user, token string) (bool, error) {
	var buf [TokenLength]byte
	copy(buf[:], token)
	return a.Client.Authenticate(user, buf)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

func (c *Client) roundTrip(conn net.Conn, req wire.Request) (*wire.Response, error) {
	body, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("authclient: encode request: %w", err)
	}
	if err := wire.WriteFrame(conn, 1, body); err != nil {
		return nil, fmt.Errorf("authclient: write request: %w", err)
	}
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("authclient: read response: %w", err)
	}
	resp, err := wire.DecodeResponse(frame.Body)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
