// Package transport speaks the line oriented request/acknowledge protocol of the remote motor
// controller.
package transport

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// ErrClosed is returned when the peer closed the connection or it failed while waiting for a
// line.
var ErrClosed = errors.New("connection closed")

const readChunkSize = 128

// LineReader frames a byte stream into newline terminated lines. Bytes following a newline are
// kept for the next call, so partial reads and several lines per read are both handled. A
// LineReader is not safe for concurrent use.
type LineReader struct {
	r   io.Reader
	buf []byte
}

// NewLineReader returns a LineReader reading from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r}
}

// ReadLine blocks until a full line is available and returns it without the delimiter. It
// returns an error wrapping ErrClosed if the stream ends or fails first; any partial line stays
// buffered.
func (lr *LineReader) ReadLine() (string, error) {
	chunk := make([]byte, readChunkSize)
	for {
		if idx := bytes.IndexByte(lr.buf, '\n'); idx >= 0 {
			line := string(lr.buf[:idx])
			lr.buf = lr.buf[idx+1:]
			return line, nil
		}

		n, err := lr.r.Read(chunk)
		lr.buf = append(lr.buf, chunk[:n]...)
		if err != nil {
			if bytes.IndexByte(lr.buf, '\n') >= 0 {
				continue
			}
			if errors.Is(err, io.EOF) {
				return "", ErrClosed
			}
			return "", errors.Wrap(ErrClosed, err.Error())
		}
		if n == 0 {
			// Same as recv returning 0: the peer shut down its side.
			return "", ErrClosed
		}
	}
}

// Buffered returns the bytes received but not yet returned as a line.
func (lr *LineReader) Buffered() []byte {
	return lr.buf
}
