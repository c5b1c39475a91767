package box

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/protocol/command"
	"github.com/marmos91/dittobox/internal/protocol/frame"
	"github.com/marmos91/dittobox/internal/protocol/transfer"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/metrics"
)

// result is what a command handler reports back to the dispatcher.
type result struct {
	outcome string
	bytes   int64
	err     error

	// closeSession ends the session after this command.
	closeSession bool
}

type commandHandler func(c *Connection, ctx context.Context, req command.Request) result

// dispatchTable maps each keyword to its handler.
var dispatchTable = map[command.Keyword]commandHandler{
	command.List:   handleList,
	command.Get:    handleGet,
	command.Put:    handlePut,
	command.Delete: handleDelete,
	command.Info:   handleInfo,
	command.Quit:   handleQuit,
}

// dispatch processes one request frame. It returns false when the session
// must end.
func (c *Connection) dispatch(ctx context.Context, text string) bool {
	start := time.Now()

	req, ok := command.Parse(text)
	if !ok {
		c.server.metrics.RecordCommand("INVALID", metrics.OutcomeInvalid, time.Since(start))
		logger.DebugCtx(ctx, "BOX invalid command", "frame", truncate(text, 64))
		if err := c.respond(command.RespInvalidCommand); err != nil {
			logger.DebugCtx(ctx, "BOX response not delivered", logger.Err(err))
			return false
		}
		c.session.CommandServed()
		return true
	}

	name := string(req.Keyword)
	ctx, span := telemetry.StartCommandSpan(ctx, name, c.sandbox.Identity(), req.Filename)
	defer span.End()

	lc := c.lc.WithCommand(name).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	res := dispatchTable[req.Keyword](c, ctx, req)

	c.session.CommandServed()
	c.server.metrics.RecordCommand(name, res.outcome, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.Outcome(res.outcome), telemetry.Bytes(res.bytes))
	telemetry.RecordError(ctx, res.err)

	args := []any{logger.KeyOutcome, res.outcome, logger.DurationMs(lc.DurationMs())}
	if req.Filename != "" {
		args = append(args, logger.Filename(req.Filename))
	}
	if res.bytes > 0 {
		args = append(args, logger.Size(res.bytes))
	}
	if res.err != nil {
		args = append(args, logger.Err(res.err))
	}
	if res.outcome == metrics.OutcomeOK {
		logger.InfoCtx(ctx, "BOX command handled", args...)
	} else {
		logger.WarnCtx(ctx, "BOX command failed", args...)
	}

	return !res.closeSession
}

func handleList(c *Connection, ctx context.Context, _ command.Request) result {
	entries, err := c.sandbox.List()
	if err != nil {
		return c.reply(ctx, command.RespListFailed, result{outcome: metrics.OutcomeFailed, err: err})
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Out-of-band names that cannot be framed are left out.
		if strings.Contains(e.Name, frame.Terminator) {
			continue
		}
		names = append(names, e.Name)
	}
	return c.reply(ctx, command.FormatListing(c.sandbox.Identity(), names), result{outcome: metrics.OutcomeOK})
}

// handleGet opens the file before answering so that a failure is reported
// with a single frame and no size header.
func handleGet(c *Connection, ctx context.Context, req command.Request) result {
	path, err := c.sandbox.ReadablePath(req.Filename)
	if err != nil {
		return c.reply(ctx, command.RespGetFailed, failure(err))
	}
	f, err := os.Open(path)
	if err != nil {
		return c.reply(ctx, command.RespGetFailed, failure(err))
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return c.reply(ctx, command.RespGetFailed, failure(err))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.writeFrameLocked(command.RespGetReady); err != nil {
		return result{outcome: metrics.OutcomeFailed, err: err, closeSession: true}
	}
	sent, err := transfer.Send(&idleWriter{conn: c.conn, idle: c.server.config.IdleTimeout}, f, info.Size(), nil)
	c.server.metrics.RecordBytesTransferred(metrics.DirectionDownload, sent)
	if err != nil {
		// The header promised more bytes than were delivered; the stream
		// cannot be resynchronized.
		c.server.metrics.RecordTruncatedTransfer(metrics.DirectionDownload)
		return result{outcome: metrics.OutcomeFailed, bytes: sent, err: err, closeSession: true}
	}
	return result{outcome: metrics.OutcomeOK, bytes: sent}
}

// handlePut consumes the transfer that follows the request frame. The
// payload is always read to the end, even when it will be thrown away, so
// the next frame starts where the client expects it.
func handlePut(c *Connection, ctx context.Context, req command.Request) result {
	size, err := transfer.ReadHeader(c.frames)
	if err != nil {
		if errors.Is(err, transfer.ErrInvalidSize) {
			// A negative size cannot be skipped over.
			res := c.reply(ctx, command.RespPutFailed, failure(err))
			res.closeSession = true
			return res
		}
		if errors.Is(err, transfer.ErrTruncated) || errors.Is(err, io.EOF) {
			c.server.metrics.RecordTruncatedTransfer(metrics.DirectionUpload)
		}
		return result{outcome: metrics.OutcomeFailed, err: err, closeSession: true}
	}

	if limit := c.server.config.MaxFileSize; limit > 0 && size > limit {
		return c.drainAndReply(ctx, size, command.RespPutTooLarge, failure(transfer.ErrTooLarge))
	}

	path, err := c.sandbox.WritablePath(req.Filename)
	if err != nil {
		return c.drainAndReply(ctx, size, command.RespPutFailed, failure(err))
	}

	received, err := transfer.ReceivePayloadToFile(c.frames, path, size, nil)
	c.server.metrics.RecordBytesTransferred(metrics.DirectionUpload, received)
	switch {
	case err == nil:
		return c.reply(ctx, command.RespPutOK, result{outcome: metrics.OutcomeOK, bytes: received})
	case errors.Is(err, transfer.ErrCreateDestination):
		return c.reply(ctx, command.RespPutFailed, result{outcome: metrics.OutcomeFailed, bytes: received, err: err})
	case errors.Is(err, transfer.ErrTruncated):
		c.server.metrics.RecordTruncatedTransfer(metrics.DirectionUpload)
		logger.WarnCtx(ctx, "BOX upload truncated, previous file kept",
			logger.Filename(req.Filename),
			logger.KeyExpected, size,
			logger.KeyReceived, received)
		return result{outcome: metrics.OutcomeFailed, bytes: received, err: err, closeSession: true}
	default:
		return result{outcome: metrics.OutcomeFailed, bytes: received, err: err, closeSession: true}
	}
}

func handleDelete(c *Connection, ctx context.Context, req command.Request) result {
	if err := c.sandbox.Remove(req.Filename); err != nil {
		return c.reply(ctx, command.RespDeleteFailed, failure(err))
	}
	return c.reply(ctx, command.RespDeleteOK, result{outcome: metrics.OutcomeOK})
}

func handleInfo(c *Connection, ctx context.Context, req command.Request) result {
	e, err := c.sandbox.Stat(req.Filename)
	if err != nil {
		return c.reply(ctx, command.RespInfoNotFound, failure(err))
	}
	return c.reply(ctx, command.FormatInfo(e.Name, e.Size, e.ModTime), result{outcome: metrics.OutcomeOK})
}

func handleQuit(c *Connection, ctx context.Context, _ command.Request) result {
	return c.reply(ctx, command.RespClosing, result{outcome: metrics.OutcomeOK, closeSession: true})
}

// reply sends text and folds a delivery failure into res.
func (c *Connection) reply(ctx context.Context, text string, res result) result {
	if err := c.respond(text); err != nil {
		logger.DebugCtx(ctx, "BOX response not delivered", logger.Err(err))
		res.closeSession = true
		if res.err == nil {
			res.err = err
			res.outcome = metrics.OutcomeFailed
		}
	}
	return res
}

// drainAndReply discards a PUT payload the server will not store.
func (c *Connection) drainAndReply(ctx context.Context, size int64, text string, res result) result {
	if _, err := transfer.Discard(c.frames, size); err != nil {
		if errors.Is(err, transfer.ErrTruncated) {
			c.server.metrics.RecordTruncatedTransfer(metrics.DirectionUpload)
		}
		res.closeSession = true
		return res
	}
	return c.reply(ctx, text, res)
}

func failure(err error) result {
	return result{outcome: metrics.OutcomeFailed, err: err}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// idleWriter applies the idle timeout to each chunk of an outgoing transfer.
type idleWriter struct {
	conn interface {
		Write([]byte) (int, error)
		SetWriteDeadline(time.Time) error
	}
	idle time.Duration
}

func (w *idleWriter) Write(p []byte) (int, error) {
	if w.idle > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.idle))
	}
	return w.conn.Write(p)
}
