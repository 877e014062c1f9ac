// Package sizelimit enforces a byte ceiling on a readable stream without
// buffering it. Accounting happens synchronously inside each Read, at every
// chunk boundary, so an attacker-controlled body can never occupy more than
// the ceiling plus one read buffer in memory.
package sizelimit

import (
	"bufio"
	"io"

	"github.com/storyvault/storyvault/pkg/storyvault"
)

// ByteCounter tracks cumulative bytes consumed from a stream. Pure state,
// no I/O.
type ByteCounter struct {
	total int64
}

// Add records n more consumed bytes and returns the new running total.
func (c *ByteCounter) Add(n int) int64 {
	c.total += int64(n)
	return c.total
}

// Total returns the running total of consumed bytes.
func (c *ByteCounter) Total() int64 {
	return c.total
}

// Reader wraps a readable stream and fails once more than max bytes have
// been consumed. The violation is reported as a PayloadTooLargeError and is
// sticky: every subsequent call fails the same way, so a caller can never
// observe silently truncated data. Errors from the underlying stream,
// including cancellation, pass through unchanged.
type Reader struct {
	rc      io.ReadCloser
	max     int64
	counter ByteCounter
	err     error
}

// NewReader wraps rc with a ceiling of max bytes.
func NewReader(rc io.ReadCloser, max int64) *Reader {
	return &Reader{rc: rc, max: max}
}

// Read implements io.Reader. Once the running total crosses the ceiling the
// call fails as a whole: no partial chunk is handed to the caller.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	n, err := r.rc.Read(p)
	if n > 0 && r.counter.Add(n) > r.max {
		r.err = &storyvault.PayloadTooLargeError{Limit: r.max, Received: r.counter.Total()}
		return 0, r.err
	}
	return n, err
}

// Close closes the underlying stream.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Err returns the sticky ceiling violation, or nil if the stream is still
// within bounds. Useful when an intermediate decoder rewraps the violation
// in its own error type.
func (r *Reader) Err() error {
	return r.err
}

// BytesRead returns the number of bytes consumed so far, including the bytes
// of a chunk that triggered the violation.
func (r *Reader) BytesRead() int64 {
	return r.counter.Total()
}

// Max returns the configured ceiling.
func (r *Reader) Max() int64 {
	return r.max
}

// ReadAll consumes rc to EOF under a ceiling of max bytes and closes it. A
// ceiling violation discards everything read so far and fails the call as a
// whole.
func ReadAll(rc io.ReadCloser, max int64) ([]byte, error) {
	r := NewReader(rc, max)
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// LineReader exposes line-oriented reads over a guarded stream. The
// underlying Reader keeps counting beneath the line buffer, so the ceiling
// holds regardless of which read style a caller mixes.
type LineReader struct {
	r  *Reader
	br *bufio.Reader
}

// NewLineReader wraps a guarded Reader for line-oriented consumption.
func NewLineReader(r *Reader) *LineReader {
	return &LineReader{r: r, br: bufio.NewReader(r)}
}

// ReadLine returns the next line including its trailing newline, if any.
// io.EOF is returned alongside the final unterminated line.
func (l *LineReader) ReadLine() (string, error) {
	return l.br.ReadString('\n')
}

// ReadAllLines consumes the stream to EOF and returns all lines. A ceiling
// violation discards the lines read so far and fails the call as a whole.
func (l *LineReader) ReadAllLines() ([]string, error) {
	var lines []string
	for {
		line, err := l.br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
