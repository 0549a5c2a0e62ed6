// Package client speaks the line query protocol: one raw query out, one
// newline-terminated response back.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"linequery/internal/types"
)

var ErrQueryTooLarge = fmt.Errorf("query exceeds %d bytes", types.MaxPayload)

// Result is one answered query.
type Result struct {
	Response string
	RTT      time.Duration
}

// Found reports whether the server answered STRING EXISTS.
func (r Result) Found() bool { return r.Response == types.RespExists }

// IsError reports whether the server answered with an ERROR line.
func (r Result) IsError() bool { return strings.HasPrefix(r.Response, "ERROR:") }

type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to addr. A non-nil tlsConfig wraps the connection in TLS.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (*Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if tlsConfig != nil {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Query sends q and waits for the response line. An empty query is sent
// as a bare newline since a zero-length write never reaches the server.
// Use Send for payloads that must bypass the size check.
func (c *Client) Query(ctx context.Context, q string) (Result, error) {
	if len(q) > types.MaxPayload {
		return Result{}, ErrQueryTooLarge
	}
	if q == "" {
		q = "\n"
	}
	return c.Send(ctx, []byte(q))
}

// Send writes raw bytes and reads one response line.
func (c *Client) Send(ctx context.Context, payload []byte) (Result, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	if _, err := c.conn.Write(payload); err != nil {
		return Result{}, c.wrap(ctx, "send", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return Result{}, c.wrap(ctx, "receive", err)
	}
	return Result{
		Response: strings.TrimRight(line, "\r\n"),
		RTT:      time.Since(start),
	}, nil
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
