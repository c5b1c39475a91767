// Package client is a Go client for the BOX file storage protocol.
//
// A Client owns one connection and runs one request at a time. Methods
// are safe for concurrent use; calls are serialized.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

// DefaultMaxFrameSize bounds responses. LIST on a large directory is the
// only response that grows.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// Client is a connected BOX session.
type Client struct {
	mu       sync.Mutex
	conn     net.Conn
	frames   *frame.Reader
	identity string
	closed   bool
}

// Listing is a parsed LIST response.
type Listing struct {
	Directory string   `json:"directory" yaml:"directory"`
	Entries   []string `json:"entries" yaml:"entries"`
}

// FileInfo is a parsed INFO response.
type FileInfo struct {
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"modified" yaml:"modified"`
}

// Dial connects to addr and identifies as identity. The server sends no
// acknowledgment, so the identity is checked locally with the same rules
// the server applies.
func Dial(ctx context.Context, addr, identity string) (*Client, error) {
	if err := sandbox.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return newClient(ctx, conn, identity)
}

// NewClient runs the handshake over an existing connection.
func NewClient(ctx context.Context, conn net.Conn, identity string) (*Client, error) {
	if err := sandbox.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	return newClient(ctx, conn, identity)
}

func newClient(ctx context.Context, conn net.Conn, identity string) (*Client, error) {
	c := &Client{
		conn:     conn,
		frames:   frame.NewReader(conn, DefaultMaxFrameSize),
		identity: identity,
	}

	release := c.bind(ctx)
	err := frame.WriteFrame(conn, identity)
	release()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send identity: %w", err)
	}
	return c, nil
}

// Identity returns the name the client connected with.
func (c *Client) Identity() string { return c.identity }

// List returns the files in the client's directory.
func (c *Client) List(ctx context.Context) (*Listing, error) {
	resp, err := c.roundTrip(ctx, string(command.List))
	if err != nil {
		return nil, err
	}
	if resp == command.RespListFailed {
		return nil, &ResponseError{Command: string(command.List), Message: resp}
	}
	dir, names, err := command.ParseListing(resp)
	if err != nil {
		return nil, err
	}
	return &Listing{Directory: dir, Entries: names}, nil
}

// Get downloads remote into local. The file appears at local only once every
// byte has arrived; a short download returns an error wrapping
// transfer.ErrTruncated and leaves no partial file.
func (c *Client) Get(ctx context.Context, remote, local string, progress transfer.ProgressFunc) (int64, error) {
	if err := sandbox.ValidateFilename(remote); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	defer c.bind(ctx)()

	req := command.Request{Keyword: command.Get, Filename: remote}
	if err := frame.WriteFrame(c.conn, req.String()); err != nil {
		return 0, c.fail(ctx, err)
	}
	resp, err := c.frames.ReadFrame()
	if err != nil {
		return 0, c.fail(ctx, err)
	}
	if resp != command.RespGetReady {
		return 0, &ResponseError{Command: string(command.Get), Message: resp}
	}

	n, err := transfer.ReceiveFile(c.frames, local, &transfer.Options{Progress: progress})
	if err != nil {
		if errors.Is(err, transfer.ErrCreateDestination) {
			// The payload was drained; the session is still aligned.
			return n, err
		}
		return n, c.fail(ctx, err)
	}
	return n, nil
}

// Put uploads local as remote. The local file is opened before anything is
// sent, so an unreadable file costs no round trip.
func (c *Client) Put(ctx context.Context, local, remote string, progress transfer.ProgressFunc) (int64, error) {
	if err := sandbox.ValidateFilename(remote); err != nil {
		return 0, err
	}
	f, err := os.Open(local)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLocalFile, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLocalFile, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrLocalFile, local)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	defer c.bind(ctx)()

	req := command.Request{Keyword: command.Put, Filename: remote}
	if err := frame.WriteFrame(c.conn, req.String()); err != nil {
		return 0, c.fail(ctx, err)
	}
	n, err := transfer.Send(c.conn, f, info.Size(), &transfer.Options{Progress: progress})
	if err != nil {
		// The server is still waiting for the declared bytes.
		return n, c.fail(ctx, err)
	}

	resp, err := c.frames.ReadFrame()
	if err != nil {
		return n, c.fail(ctx, err)
	}
	if resp != command.RespPutOK {
		return n, &ResponseError{Command: string(command.Put), Message: resp}
	}
	return n, nil
}

// Delete removes name from the server.
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := sandbox.ValidateFilename(name); err != nil {
		return err
	}
	req := command.Request{Keyword: command.Delete, Filename: name}
	resp, err := c.roundTrip(ctx, req.String())
	if err != nil {
		return err
	}
	if resp != command.RespDeleteOK {
		return &ResponseError{Command: string(command.Delete), Message: resp}
	}
	return nil
}

// Info returns the size and modification time of name.
func (c *Client) Info(ctx context.Context, name string) (*FileInfo, error) {
	if err := sandbox.ValidateFilename(name); err != nil {
		return nil, err
	}
	req := command.Request{Keyword: command.Info, Filename: name}
	resp, err := c.roundTrip(ctx, req.String())
	if err != nil {
		return nil, err
	}
	if resp == command.RespInfoNotFound {
		return nil, fmt.Errorf("%w: %s", ErrFileNotExist, name)
	}
	n, size, mod, err := command.ParseInfo(resp)
	if err != nil {
		return nil, err
	}
	return &FileInfo{Name: n, Size: size, ModTime: mod}, nil
}

// Quit ends the session and closes the connection.
func (c *Client) Quit(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, string(command.Quit))
	closeErr := c.Close()
	if err != nil {
		return err
	}
	if resp != command.RespClosing {
		return &ResponseError{Command: string(command.Quit), Message: resp}
	}
	return closeErr
}

// Do sends a raw command line and returns the response text unchanged.
// QUIT closes the client afterwards.
func (c *Client) Do(ctx context.Context, line string) (string, error) {
	req, ok := command.Parse(line)
	if ok && (req.Keyword == command.Get || req.Keyword == command.Put) {
		return "", ErrTransferCommand
	}

	resp, err := c.roundTrip(ctx, line)
	if ok && req.Keyword == command.Quit {
		_ = c.Close()
	}
	return resp, err
}

// Close closes the connection without sending QUIT.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	defer c.bind(ctx)()

	if err := frame.WriteFrame(c.conn, text); err != nil {
		return "", c.fail(ctx, err)
	}
	resp, err := c.frames.ReadFrame()
	if err != nil {
		return "", c.fail(ctx, err)
	}
	return resp, nil
}

// fail closes a connection whose stream position is no longer known. The
// context error is preferred when cancellation caused the failure. Callers
// hold c.mu.
func (c *Client) fail(ctx context.Context, err error) error {
	c.closed = true
	_ = c.conn.Close()
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	// The connection deadline can fire a moment before the context's timer.
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// bind maps ctx onto the connection deadline and returns a func that undoes
// it. Cancellation forces a deadline in the past so blocked I/O returns.
func (c *Client) bind(ctx context.Context) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		stop()
		_ = c.conn.SetDeadline(time.Time{})
	}
}
