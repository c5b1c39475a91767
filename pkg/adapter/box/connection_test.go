package box

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/pkg/adapter"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	sizes := []int{0, 1, 1000, transfer.ChunkSize, transfer.ChunkSize + 17, 3 * transfer.ChunkSize}
	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			data := bytes.Repeat([]byte{byte(size % 251)}, size)
			for i := range data {
				data[i] = byte(i * 7)
			}
			name := fmt.Sprintf("file-%d.bin", size)

			assert.Equal(t, command.RespPutOK, c.put(name, data))

			resp, got := c.get(name)
			assert.Equal(t, command.RespGetReady, resp)
			assert.Equal(t, data, got)
		})
	}
}

func TestPutOverwrites(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	require.Equal(t, command.RespPutOK, c.put("a.txt", []byte("first version")))
	require.Equal(t, command.RespPutOK, c.put("a.txt", []byte("v2")))

	_, got := c.get("a.txt")
	assert.Equal(t, "v2", string(got))
}

func TestListEmptyThenOne(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, "Files in directory: alice\nDirectory is empty.\n", c.do("LIST"))

	require.Equal(t, command.RespPutOK, c.put("notes.txt", []byte("hi")))

	listing := c.do("LIST")
	assert.Equal(t, "Files in directory: alice\nnotes.txt\n", listing)
	assert.Equal(t, 1, strings.Count(listing, "notes.txt"))
}

func TestDelete(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, command.RespDeleteFailed, c.do("DELETE missing.txt"))

	require.Equal(t, command.RespPutOK, c.put("doomed.txt", []byte("bye")))
	assert.Equal(t, command.RespDeleteOK, c.do("DELETE doomed.txt"))
	assert.NotContains(t, c.do("LIST"), "doomed.txt")
	assert.Equal(t, command.RespDeleteFailed, c.do("DELETE doomed.txt"))
}

func TestInfo(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, command.RespInfoNotFound, c.do("INFO ghost.txt"))

	data := bytes.Repeat([]byte("x"), 4321)
	require.Equal(t, command.RespPutOK, c.put("report.csv", data))

	name, size, mod, err := command.ParseInfo(c.do("INFO report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "report.csv", name)
	assert.Equal(t, int64(len(data)), size)
	assert.WithinDuration(t, time.Now(), mod, time.Minute)
}

func TestMissingFilenameIsFailure(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, command.RespGetFailed, c.do("GET"))
	assert.Equal(t, command.RespDeleteFailed, c.do("DELETE"))
	assert.Equal(t, command.RespInfoNotFound, c.do("INFO"))
	assert.Equal(t, command.RespPutFailed, c.put("", []byte("orphan")))
	assert.Contains(t, c.do("LIST"), "Directory is empty.")
}

func TestIdentitiesAreIsolated(t *testing.T) {
	srv := startServer(t, Config{})

	identities := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, id := range identities {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			c := dialAs(t, srv.addr, id)
			content := bytes.Repeat([]byte(id), 20000)
			for i := 0; i < 3; i++ {
				assert.Equal(t, command.RespPutOK, c.put("same_name.txt", content))
				_, got := c.get("same_name.txt")
				assert.Equal(t, content, got)
			}
			assert.Equal(t, command.RespClosing, c.do("QUIT"))
		}(id)
	}
	wg.Wait()

	for _, id := range identities {
		data, err := os.ReadFile(filepath.Join(srv.root.Path(), id, "same_name.txt"))
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte(id), 20000), data)
	}
}

func TestTruncatedPutIsNotSuccess(t *testing.T) {
	srv := startServer(t, Config{})

	c := dialAs(t, srv.addr, "alice")
	require.Equal(t, command.RespPutOK, c.put("keep.txt", []byte("original")))
	require.Equal(t, command.RespClosing, c.do("QUIT"))

	c = dialAs(t, srv.addr, "alice")
	var buf bytes.Buffer
	require.NoError(t, frame.WriteFrame(&buf, "PUT keep.txt"))
	require.NoError(t, transfer.WriteHeader(&buf, 1000))
	buf.WriteString("only ten b")
	_, err := c.conn.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, c.conn.(*net.TCPConn).CloseWrite())

	_, err = c.frames.ReadFrame()
	assert.ErrorIs(t, err, io.EOF, "a truncated upload must never be acknowledged")

	assert.Eventually(t, func() bool { return srv.metrics.truncatedCount(metrics.DirectionUpload) == 1 },
		2*time.Second, 10*time.Millisecond)

	dirents, err := os.ReadDir(filepath.Join(srv.root.Path(), "alice"))
	require.NoError(t, err)
	require.Len(t, dirents, 1, "temporary upload file must be removed")

	c = dialAs(t, srv.addr, "alice")
	_, got := c.get("keep.txt")
	assert.Equal(t, "original", string(got))
}

func TestInvalidCommandKeepsSession(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	for _, bad := range []string{"FOO", "list", "", "   ", "RENAME a b"} {
		assert.Equal(t, command.RespInvalidCommand, c.do(bad), "frame %q", bad)
	}
	assert.Contains(t, c.do("LIST"), "Files in directory: alice")
	assert.Equal(t, 5, srv.metrics.command("INVALID/"+metrics.OutcomeInvalid))
}

func TestQuitClosesConnection(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, command.RespClosing, c.do("QUIT"))
	_, err := c.frames.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)

	assert.Eventually(t, func() bool { return srv.adapter.GetActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestTraversalIsRejected(t *testing.T) {
	srv := startServer(t, Config{})
	outside := filepath.Join(filepath.Dir(srv.root.Path()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("top secret"), 0644))

	c := dialAs(t, srv.addr, "alice")
	require.Equal(t, command.RespPutOK, c.put("ok.txt", []byte("fine")))

	resp, _ := c.get("../../secret.txt")
	assert.Equal(t, command.RespGetFailed, resp)
	assert.Equal(t, command.RespInfoNotFound, c.do("INFO "+outside))
	assert.Equal(t, command.RespDeleteFailed, c.do("DELETE ../alice/ok.txt"))
	assert.Equal(t, command.RespPutFailed, c.put("../bob.txt", []byte("evil")))
	assert.Equal(t, command.RespPutFailed, c.put(transfer.TempPrefix+"x", []byte("sneaky")))

	// The drained payloads left the stream in sync.
	assert.Equal(t, "Files in directory: alice\nok.txt\n", c.do("LIST"))
	assert.NoFileExists(t, filepath.Join(srv.root.Path(), "bob.txt"))
	assert.FileExists(t, outside)
}

func TestGetFailureSendsNoHeader(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	require.NoError(t, os.Mkdir(filepath.Join(srv.root.Path(), "alice", "subdir"), 0755))

	assert.Equal(t, command.RespGetFailed, c.do("GET nope.txt"))
	assert.Equal(t, command.RespGetFailed, c.do("GET subdir"))
	assert.Equal(t, 0, c.frames.Buffered())
	assert.Contains(t, c.do("LIST"), "subdir")
}

func TestPipelinedFrames(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")

	var buf bytes.Buffer
	for _, f := range []string{"INFO a.txt", "FOO", "LIST"} {
		require.NoError(t, frame.WriteFrame(&buf, f))
	}

	// A second client sends its identity, a PUT with payload and an INFO
	// in a single write.
	c2conn, err := net.Dial("tcp", srv.addr)
	require.NoError(t, err)
	c2 := newWireClient(t, c2conn)
	var all bytes.Buffer
	require.NoError(t, frame.WriteFrame(&all, "bob"))
	require.NoError(t, frame.WriteFrame(&all, "PUT p.txt"))
	require.NoError(t, transfer.WriteHeader(&all, 3))
	all.WriteString("abc")
	require.NoError(t, frame.WriteFrame(&all, "INFO p.txt"))
	_, err = c2conn.Write(all.Bytes())
	require.NoError(t, err)

	_, err = c.conn.Write(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, command.RespInfoNotFound, c.recv())
	assert.Equal(t, command.RespInvalidCommand, c.recv())
	assert.Contains(t, c.recv(), "Directory is empty.")

	assert.Equal(t, command.RespPutOK, c2.recv())
	_, size, _, err := command.ParseInfo(c2.recv())
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
}

func TestMaxFileSize(t *testing.T) {
	srv := startServer(t, Config{MaxFileSize: 10})
	c := dialAs(t, srv.addr, "alice")

	assert.Equal(t, command.RespPutTooLarge, c.put("big.bin", bytes.Repeat([]byte("z"), 11)))
	assert.Equal(t, command.RespPutOK, c.put("small.bin", bytes.Repeat([]byte("z"), 10)))
	assert.Equal(t, "Files in directory: alice\nsmall.bin\n", c.do("LIST"))
}

func TestHandshakeRecordsClient(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")
	// The first reply proves the handshake finished.
	require.Contains(t, c.do("LIST"), "alice")

	var found bool
	for _, s := range srv.adapter.Sessions() {
		if s.Identity == "alice" {
			found = true
			assert.Equal(t, adapter.StateActive.String(), s.State)
			assert.Equal(t, int64(1), s.Commands)
		}
	}
	assert.True(t, found)

	client, err := srv.registry.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.Sessions)
	assert.Equal(t, 1, srv.metrics.handshake(metrics.OutcomeOK))
	assert.DirExists(t, filepath.Join(srv.root.Path(), "alice"))
}

func TestHandshakeInvalidIdentity(t *testing.T) {
	for _, identity := range []string{"", "..", "../etc", "a/b", "bad\x00name"} {
		t.Run(fmt.Sprintf("%q", identity), func(t *testing.T) {
			conn, m, done := servePipe(t, Config{})

			c := newWireClient(t, conn)
			c.send(identity)
			assert.Equal(t, command.RespInvalidName, c.recv())
			_, err := c.frames.ReadFrame()
			assert.Error(t, err)

			waitDone(t, done)
			assert.Equal(t, 1, m.handshake(metrics.OutcomeInvalid))
		})
	}
}

func TestHandshakeDisconnect(t *testing.T) {
	conn, m, done := servePipe(t, Config{})
	require.NoError(t, conn.Close())

	waitDone(t, done)
	assert.Equal(t, 1, m.handshake(metrics.OutcomeFailed))
}

func TestDisconnectWhileActive(t *testing.T) {
	conn, m, done := servePipe(t, Config{})
	c := newWireClient(t, conn)
	c.send("alice")
	assert.Contains(t, c.do("LIST"), "alice")
	require.NoError(t, conn.Close())

	waitDone(t, done)
	assert.Equal(t, 1, m.handshake(metrics.OutcomeOK))
	assert.Equal(t, 1, m.command("LIST/"+metrics.OutcomeOK))
}

func TestIdleTimeout(t *testing.T) {
	srv := startServer(t, Config{IdleTimeout: 150 * time.Millisecond})
	c := dialAs(t, srv.addr, "alice")

	assert.Contains(t, c.do("LIST"), "alice")
	c.expectClosed()
}

func TestStopClosesSessions(t *testing.T) {
	srv := startServer(t, Config{})
	c := dialAs(t, srv.addr, "alice")
	assert.Contains(t, c.do("LIST"), "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, srv.adapter.Stop(ctx))

	c.expectClosed()
	assert.False(t, srv.adapter.Ready())
}

func TestCloseSessionCancelsOneClient(t *testing.T) {
	srv := startServer(t, Config{})
	alice := dialAs(t, srv.addr, "alice")
	bob := dialAs(t, srv.addr, "bob")
	assert.Contains(t, alice.do("LIST"), "alice")
	assert.Contains(t, bob.do("LIST"), "bob")

	for _, s := range srv.adapter.Sessions() {
		if s.Identity == "alice" {
			require.NoError(t, srv.adapter.CloseSession(s.ID))
		}
	}

	_, err := alice.frames.ReadFrame()
	assert.Error(t, err)
	assert.Contains(t, bob.do("LIST"), "bob")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	root, err := sandbox.NewRoot(t.TempDir())
	require.NoError(t, err)

	assert.Panics(t, func() { New(Config{Port: 70000}, root, nil, nil) })
	assert.Panics(t, func() { New(Config{MaxFrameSize: 8}, root, nil, nil) })
	assert.Panics(t, func() { New(Config{}, nil, nil, nil) })
	assert.NotPanics(t, func() { New(Config{}, root, nil, nil) })
}

// servePipe runs one Connection over net.Pipe without a listener.
func servePipe(t *testing.T, cfg Config) (net.Conn, *recordingMetrics, <-chan struct{}) {
	t.Helper()

	root, err := sandbox.NewRoot(t.TempDir())
	require.NoError(t, err)
	m := newRecordingMetrics()
	a := New(cfg, root, nil, m)

	client, server := net.Pipe()
	session := adapter.NewDetachedSession(server)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer session.Finish()
		NewConnection(a, server, session).Serve(context.Background())
	}()
	return client, m, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("connection handler did not return")
	}
}

// deadlineConn records read deadlines and runs onSet after each one.
type deadlineConn struct {
	net.Conn
	deadlines []time.Time
	onSet     func()
}

func (c *deadlineConn) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	if c.onSet != nil {
		c.onSet()
		c.onSet = nil
	}
	return nil
}

func (c *deadlineConn) Read([]byte) (int, error) { return 0, os.ErrDeadlineExceeded }

func TestIdleReaderYieldsToShutdownDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown lands right after the idle deadline was armed.
	conn := &deadlineConn{onSet: cancel}
	r := &idleReader{conn: conn, idle: time.Hour, ctx: ctx}

	before := time.Now()
	_, err := r.Read(make([]byte, 8))
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	require.Len(t, conn.deadlines, 2)
	assert.True(t, conn.deadlines[0].After(before.Add(59*time.Minute)))
	assert.False(t, conn.deadlines[1].After(time.Now()), "final deadline must not extend past shutdown")

	// Once cancelled, the acceptor's deadline is left untouched.
	_, _ = r.Read(make([]byte, 8))
	assert.Len(t, conn.deadlines, 2)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 64))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; cutting at 2 would split it.
	got := truncate("aé!", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}
