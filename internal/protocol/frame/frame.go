// Package frame implements the terminator-delimited text channel used for
// the identity handshake, commands and responses.
//
// A frame on the wire is its payload followed by Terminator. The terminator
// is reserved: payloads containing it are rejected rather than escaped.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/dittobox/pkg/bufpool"
)

// Terminator marks the end of every frame.
const Terminator = "<END>"

// DefaultMaxSize bounds a single frame when no explicit limit is configured.
const DefaultMaxSize = 64 * 1024

// readChunk is the size of each read from the underlying stream.
const readChunk = 1024

var (
	// ErrFrameTooLarge is returned when no terminator appears within the size limit.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrIncompleteFrame is returned when the peer closes in the middle of a frame.
	ErrIncompleteFrame = fmt.Errorf("connection closed before frame terminator: %w", io.ErrUnexpectedEOF)

	// ErrReservedSequence is returned when a payload contains Terminator.
	ErrReservedSequence = errors.New("payload contains reserved frame terminator")
)

var terminator = []byte(Terminator)

// Reader decodes frames from a byte stream.
//
// It keeps a persistent buffer across reads, so several frames delivered by
// one read are returned one at a time and a frame split over many reads is
// reassembled. Reader also implements io.Reader: bytes already buffered past
// the last terminator are served first, which lets a binary transfer that
// directly follows a frame share the same stream.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	r       io.Reader
	buf     []byte
	maxSize int
	scanned int // bytes of buf already searched for the terminator
	err     error
}

// NewReader returns a Reader with the given frame size limit. A limit of
// zero or less selects DefaultMaxSize.
func NewReader(r io.Reader, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Reader{r: r, maxSize: maxSize}
}

// ReadFrame returns the next frame payload without its terminator.
//
// A clean disconnect between frames returns ("", io.EOF). A disconnect in
// the middle of a frame returns ErrIncompleteFrame. An empty frame is
// ("", nil).
func (fr *Reader) ReadFrame() (string, error) {
	for {
		if i := fr.indexTerminator(); i >= 0 {
			payload := string(fr.buf[:i])
			fr.consume(i + len(terminator))
			return payload, nil
		}

		if len(fr.buf) > fr.maxSize+len(terminator) {
			return "", fmt.Errorf("%w: %d bytes buffered without terminator", ErrFrameTooLarge, len(fr.buf))
		}

		if fr.err != nil {
			err := fr.err
			if errors.Is(err, io.EOF) && len(fr.buf) > 0 {
				err = ErrIncompleteFrame
			}
			return "", err
		}

		fr.fill()
	}
}

// Read implements io.Reader, draining buffered bytes before reading from
// the underlying stream.
func (fr *Reader) Read(p []byte) (int, error) {
	if len(fr.buf) > 0 {
		n := copy(p, fr.buf)
		fr.consume(n)
		return n, nil
	}
	if fr.err != nil {
		return 0, fr.err
	}
	return fr.r.Read(p)
}

// Buffered returns the number of bytes held past the last decoded frame.
func (fr *Reader) Buffered() int {
	return len(fr.buf)
}

func (fr *Reader) indexTerminator() int {
	// Resume the search where the previous one stopped, backing up far
	// enough to catch a terminator split across reads.
	start := fr.scanned - len(terminator) + 1
	if start < 0 {
		start = 0
	}
	i := bytes.Index(fr.buf[start:], terminator)
	if i < 0 {
		fr.scanned = len(fr.buf)
		return -1
	}
	return start + i
}

func (fr *Reader) consume(n int) {
	fr.buf = fr.buf[n:]
	fr.scanned = 0
	if len(fr.buf) == 0 {
		fr.buf = nil
	}
}

func (fr *Reader) fill() {
	chunk := bufpool.Get(readChunk)
	defer bufpool.Put(chunk)
	n, err := fr.r.Read(chunk)
	if n > 0 {
		fr.buf = append(fr.buf, chunk[:n]...)
	}
	if err != nil {
		fr.err = err
	}
}

// Encode returns payload with the terminator appended.
func Encode(payload string) ([]byte, error) {
	if bytes.Contains([]byte(payload), terminator) {
		return nil, ErrReservedSequence
	}
	out := make([]byte, 0, len(payload)+len(terminator))
	out = append(out, payload...)
	return append(out, terminator...), nil
}

// WriteFrame writes payload followed by the terminator, retrying short
// writes until the whole frame is flushed or the writer fails.
func WriteFrame(w io.Writer, payload string) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	return WriteFull(w, data)
}

// WriteFull writes all of data to w.
func WriteFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
