// Package transfer implements the length-prefixed binary channel that
// carries file contents after a GET or PUT exchange.
//
// A transfer is an 8-byte little-endian signed size header followed by
// exactly that many raw bytes, streamed in ChunkSize pieces.
package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/dittobox/pkg/bufpool"
)

const (
	// ChunkSize is the unit in which payloads are streamed.
	ChunkSize = 64 * 1024

	// HeaderSize is the length of the size header.
	HeaderSize = 8

	// TempPrefix names in-flight downloads and uploads. Files carrying it are
	// never exposed as finished files.
	TempPrefix = ".dbox-upload-"
)

var (
	// ErrTruncated is returned when the stream ends before the declared size.
	ErrTruncated = errors.New("transfer truncated")

	// ErrInvalidSize is returned for a negative size header.
	ErrInvalidSize = errors.New("invalid transfer size")

	// ErrTooLarge is returned when the declared size exceeds the caller's limit.
	ErrTooLarge = errors.New("transfer exceeds size limit")

	// ErrSourceChanged is returned when a file shrinks while it is being sent.
	ErrSourceChanged = errors.New("source file changed during transfer")

	// ErrCreateDestination is returned when the received file cannot be stored.
	ErrCreateDestination = errors.New("cannot create destination")
)

// TruncatedError reports how far a truncated transfer got.
type TruncatedError struct {
	Expected int64
	Received int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("transfer truncated: received %d of %d bytes", e.Received, e.Expected)
}

// Is makes errors.Is(err, ErrTruncated) hold.
func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// ProgressFunc is invoked after each chunk with the running and total byte
// counts. It only observes the transfer.
type ProgressFunc func(done, total int64)

// Options tunes a single transfer. The zero value is valid.
type Options struct {
	// Progress, if set, is called after every chunk.
	Progress ProgressFunc

	// MaxSize rejects incoming transfers declaring more bytes. Zero means no limit.
	MaxSize int64
}

func (o *Options) report(done, total int64) {
	if o != nil && o.Progress != nil {
		o.Progress(done, total)
	}
}

// WriteHeader writes the size header.
func WriteHeader(w io.Writer, size int64) error {
	if size < 0 {
		return ErrInvalidSize
	}
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(size))
	_, err := w.Write(hdr[:])
	return err
}

// ReadHeader reads the size header. A stream that ends inside the header
// yields a *TruncatedError; one that ends before it yields io.EOF.
func ReadHeader(r io.Reader) (int64, error) {
	var hdr [HeaderSize]byte
	n, err := io.ReadFull(r, hdr[:])
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, &TruncatedError{Expected: HeaderSize, Received: int64(n)}
	case err != nil:
		return 0, err
	}

	size := int64(binary.LittleEndian.Uint64(hdr[:]))
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return size, nil
}

// Send writes the header for size and then exactly size bytes from src.
func Send(w io.Writer, src io.Reader, size int64, opts *Options) (int64, error) {
	if err := WriteHeader(w, size); err != nil {
		return 0, fmt.Errorf("write size header: %w", err)
	}

	buf := bufpool.Get(ChunkSize)
	defer bufpool.Put(buf)

	var sent int64
	for sent < size {
		want := min(int64(len(buf)), size-sent)
		n, err := io.ReadFull(src, buf[:want])
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return sent, fmt.Errorf("send chunk: %w", werr)
			}
			sent += int64(n)
			opts.report(sent, size)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sent, fmt.Errorf("%w: read %d of %d bytes", ErrSourceChanged, sent, size)
			}
			return sent, fmt.Errorf("read source: %w", err)
		}
	}
	return sent, nil
}

// SendFile streams the file at path, sized from its current length.
func SendFile(w io.Writer, path string, opts *Options) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("open source: %s is not a regular file", filepath.Base(path))
	}
	return Send(w, f, info.Size(), opts)
}

// Receive reads one transfer from r and copies its payload into dst chunk by
// chunk. If the stream ends early the returned error wraps ErrTruncated and
// the count tells how many payload bytes were written.
func Receive(r io.Reader, dst io.Writer, opts *Options) (int64, error) {
	size, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	if opts != nil && opts.MaxSize > 0 && size > opts.MaxSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, opts.MaxSize)
	}
	return ReceivePayload(r, dst, size, opts)
}

// ReceivePayload copies exactly size bytes from r to dst. Callers that have
// already consumed the header use it directly.
func ReceivePayload(r io.Reader, dst io.Writer, size int64, opts *Options) (int64, error) {
	buf := bufpool.Get(ChunkSize)
	defer bufpool.Put(buf)

	var got int64
	for got < size {
		want := min(int64(len(buf)), size-got)
		n, err := r.Read(buf[:want])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return got, fmt.Errorf("write destination: %w", werr)
			}
			got += int64(n)
			opts.report(got, size)
		}
		if err != nil {
			if got == size {
				break
			}
			if errors.Is(err, io.EOF) {
				return got, &TruncatedError{Expected: size, Received: got}
			}
			return got, fmt.Errorf("receive chunk: %w", err)
		}
	}
	return got, nil
}

// Discard consumes size payload bytes without storing them, keeping the
// stream aligned when the receiver has nowhere to put the data.
func Discard(r io.Reader, size int64) (int64, error) {
	return ReceivePayload(r, io.Discard, size, nil)
}

// ReceiveFile receives one transfer into path. The payload is written to a
// temporary file in the same directory and renamed over path only once every
// declared byte has arrived, so a truncated transfer never replaces or
// leaves behind a partial file.
func ReceiveFile(r io.Reader, path string, opts *Options) (int64, error) {
	size, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	if opts != nil && opts.MaxSize > 0 && size > opts.MaxSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, opts.MaxSize)
	}
	return ReceivePayloadToFile(r, path, size, opts)
}

// ReceivePayloadToFile is ReceiveFile for callers that already read the header.
//
// Local failures (the temporary file cannot be created or written) do not
// stop the payload from being consumed: the rest of the stream is drained so
// the connection stays aligned, and the error wraps ErrCreateDestination.
func ReceivePayloadToFile(r io.Reader, path string, size int64, opts *Options) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), TempPrefix+"*")
	if err != nil {
		if _, derr := Discard(r, size); derr != nil {
			return 0, derr
		}
		return 0, fmt.Errorf("%w: %w", ErrCreateDestination, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	sink := &softWriter{w: tmp}
	n, err := ReceivePayload(r, sink, size, opts)
	if err != nil {
		return n, err
	}
	if sink.err != nil {
		return n, fmt.Errorf("%w: %w", ErrCreateDestination, sink.err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: %w", ErrCreateDestination, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, fmt.Errorf("%w: %w", ErrCreateDestination, err)
	}
	committed = true
	return n, nil
}

// softWriter records the first write error and swallows everything after it.
type softWriter struct {
	w   io.Writer
	err error
}

func (s *softWriter) Write(p []byte) (int, error) {
	if s.err == nil {
		if _, err := s.w.Write(p); err != nil {
			s.err = err
		}
	}
	return len(p), nil
}
