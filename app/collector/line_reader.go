package collector

import (
	"bytes"
	"errors"
	"net"
	"time"
)

// ErrLineTooLong is matched by errors.Is for every *LineTooLongError
var ErrLineTooLong = errors.New("line too long")

// LineTooLongError carries a preview of a frame that exceeded the line limit
type LineTooLongError struct {
	Preview string
	Length  int
}

func (e *LineTooLongError) Error() string {
	return "line too long"
}

func (e *LineTooLongError) Is(target error) bool {
	return target == ErrLineTooLong
}

const (
	readChunkSize = 4096
	previewSize   = 128
)

// lineReader frames newline-delimited messages from a connection. Whatever is left
// in the buffer when the peer goes away is never returned.
type lineReader struct {
	conn        net.Conn
	buf         []byte
	readBuf     []byte
	maxLine     int
	idleTimeout time.Duration
	bytesRead   int64
}

func newLineReader(conn net.Conn, maxLine int, idleTimeout time.Duration) *lineReader {
	initial := maxLine
	if initial <= 0 || initial > readChunkSize {
		initial = readChunkSize
	}
	return &lineReader{
		conn:        conn,
		buf:         make([]byte, 0, initial),
		readBuf:     make([]byte, readChunkSize),
		maxLine:     maxLine,
		idleTimeout: idleTimeout,
	}
}

// ReadLine returns the next non-blank line with surrounding whitespace trimmed.
func (r *lineReader) ReadLine() ([]byte, error) {
	for {
		line, err := r.nextLine()
		if line != nil || err != nil {
			return line, err
		}

		if r.idleTimeout > 0 {
			if err := r.conn.SetReadDeadline(time.Now().Add(r.idleTimeout)); err != nil {
				return nil, err
			}
		}
		n, err := r.conn.Read(r.readBuf)
		if n > 0 {
			r.bytesRead += int64(n)
			r.buf = append(r.buf, r.readBuf[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

// BytesRead reports the total bytes received on the connection
func (r *lineReader) BytesRead() int64 {
	return r.bytesRead
}

func (r *lineReader) nextLine() ([]byte, error) {
	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			if r.maxLine > 0 && len(r.buf) > r.maxLine {
				return nil, r.dropTooLong(len(r.buf))
			}
			return nil, nil
		}
		if r.maxLine > 0 && idx > r.maxLine {
			return nil, r.dropTooLong(idx)
		}

		line := bytes.TrimSpace(r.buf[:idx])
		out := make([]byte, len(line))
		copy(out, line)
		r.buf = append(r.buf[:0], r.buf[idx+1:]...)

		if len(out) == 0 {
			continue
		}
		return bytes.ToValidUTF8(out, []byte("�")), nil
	}
}

func (r *lineReader) dropTooLong(length int) error {
	n := length
	if n > previewSize {
		n = previewSize
	}
	preview := string(bytes.ToValidUTF8(r.buf[:n], []byte("�")))
	r.buf = r.buf[:0]
	return &LineTooLongError{Preview: preview, Length: length}
}
