package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	originalLevel := Level(currentLevel.Load())
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(originalLevel))
		currentFormat.Store(originalFormat)
		reconfigure()
	})
	return buf
}

// ============================================================================
// Level Filtering
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	captureOutput(t)
	SetLevel("WARN")
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

// ============================================================================
// Formats
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("file stored", KeyFilename, "notes.txt", KeySize, 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "file stored", record["msg"])
	assert.Equal(t, "notes.txt", record[KeyFilename])
	assert.EqualValues(t, 42, record[KeySize])
}

func TestTextFormatWithoutColor(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	Info("session closed", Identity("alice"), Err(errors.New("boom")), Err(nil))

	out := buf.String()
	assert.Contains(t, out, "[INFO] session closed")
	assert.Contains(t, out, "identity=alice")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "\033[")
}

// ============================================================================
// Context fields
// ============================================================================

func TestContextFieldsArePrepended(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")
	SetFormat("text")

	lc := NewLogContext("sess-1", "10.0.0.7").WithIdentity("bob").WithCommand("LIST")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "command handled", KeyEntries, 3)

	out := buf.String()
	assert.Contains(t, out, "session_id=sess-1")
	assert.Contains(t, out, "client_ip=10.0.0.7")
	assert.Contains(t, out, "identity=bob")
	assert.Contains(t, out, "command=LIST")
	assert.Less(t, strings.Index(out, "session_id"), strings.Index(out, "entries=3"))
}

func TestLogContextCloneIsIndependent(t *testing.T) {
	base := NewLogContext("s", "127.0.0.1")
	withCmd := base.WithCommand("GET")

	assert.Empty(t, base.Command)
	assert.Equal(t, "GET", withCmd.Command)
	assert.Nil(t, (*LogContext)(nil).WithIdentity("x"))
	assert.Nil(t, FromContext(context.Background()))
	assert.Zero(t, (*LogContext)(nil).DurationMs())
}

// ============================================================================
// Init
// ============================================================================

func TestInitWritesToFile(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "server.log")

	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("hello file")
	require.NoError(t, Init(Config{Output: "stderr"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	captureOutput(t)
	assert.Error(t, Init(Config{Level: "chatty"}))
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Info("concurrent")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "concurrent"))
}
