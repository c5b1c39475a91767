package box

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/pkg/registry"
	"github.com/marmos91/dittobox/pkg/sandbox"
	"github.com/stretchr/testify/require"
)

// recordingMetrics counts what the server reports.
type recordingMetrics struct {
	mu         sync.Mutex
	handshakes map[string]int
	commands   map[string]int
	bytes      map[string]int64
	truncated  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		handshakes: map[string]int{},
		commands:   map[string]int{},
		bytes:      map[string]int64{},
		truncated:  map[string]int{},
	}
}

func (m *recordingMetrics) RecordConnectionAccepted()    {}
func (m *recordingMetrics) RecordConnectionClosed()      {}
func (m *recordingMetrics) RecordConnectionForceClosed() {}
func (m *recordingMetrics) SetActiveConnections(int32)   {}

func (m *recordingMetrics) RecordHandshake(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handshakes[outcome]++
}

func (m *recordingMetrics) RecordCommand(cmd, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd+"/"+outcome]++
}

func (m *recordingMetrics) RecordBytesTransferred(direction string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[direction] += n
}

func (m *recordingMetrics) RecordTruncatedTransfer(direction string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncated[direction]++
}

func (m *recordingMetrics) handshake(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handshakes[outcome]
}

func (m *recordingMetrics) command(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commands[key]
}

func (m *recordingMetrics) truncatedCount(direction string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.truncated[direction]
}

type testServer struct {
	adapter  *Adapter
	addr     string
	root     *sandbox.Root
	registry registry.Store
	metrics  *recordingMetrics
}

func startServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	root, err := sandbox.NewRoot(t.TempDir())
	require.NoError(t, err)
	reg := registry.NewMemoryStore()
	m := newRecordingMetrics()

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	cfg.BindAddress = "127.0.0.1"
	a := New(cfg, root, reg, m)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx) }()

	addr := a.Addr()
	require.NotEmpty(t, addr)

	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return &testServer{adapter: a, addr: addr, root: root, registry: reg, metrics: m}
}

// wireClient speaks the protocol directly so tests can see every byte.
type wireClient struct {
	t      *testing.T
	conn   net.Conn
	frames *frame.Reader
}

func newWireClient(t *testing.T, conn net.Conn) *wireClient {
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &wireClient{t: t, conn: conn, frames: frame.NewReader(conn, 1<<20)}
}

func dialAs(t *testing.T, addr, identity string) *wireClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := newWireClient(t, conn)
	c.send(identity)
	return c
}

func (c *wireClient) send(text string) {
	c.t.Helper()
	require.NoError(c.t, frame.WriteFrame(c.conn, text))
}

func (c *wireClient) recv() string {
	c.t.Helper()
	text, err := c.frames.ReadFrame()
	require.NoError(c.t, err)
	return text
}

func (c *wireClient) do(text string) string {
	c.t.Helper()
	c.send(text)
	return c.recv()
}

func (c *wireClient) put(name string, data []byte) string {
	c.t.Helper()
	var buf bytes.Buffer
	require.NoError(c.t, frame.WriteFrame(&buf, string(command.Put)+" "+name))
	require.NoError(c.t, transfer.WriteHeader(&buf, int64(len(data))))
	buf.Write(data)
	_, err := c.conn.Write(buf.Bytes())
	require.NoError(c.t, err)
	return c.recv()
}

func (c *wireClient) get(name string) (string, []byte) {
	c.t.Helper()
	resp := c.do(string(command.Get) + " " + name)
	if resp != command.RespGetReady {
		return resp, nil
	}
	var buf bytes.Buffer
	_, err := transfer.Receive(c.frames, &buf, nil)
	require.NoError(c.t, err)
	return resp, buf.Bytes()
}

// expectClosed asserts the server ends the stream with no further frame
// except an optional closing acknowledgment.
func (c *wireClient) expectClosed() {
	c.t.Helper()
	text, err := c.frames.ReadFrame()
	if err == nil {
		require.Equal(c.t, command.RespClosing, text)
		_, err = c.frames.ReadFrame()
	}
	require.Error(c.t, err)
}
