package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/protocol"
)

// maxMessageSize bounds a single JSON-RPC line; inline fixtures can be large
const maxMessageSize = 8 << 20

// ParseError is returned by ReadRequest when a line is not a valid request.
// The stream is still usable, the caller should answer with protocol.ErrParse.
type ParseError struct {
	Raw []byte
	Err error
}

func (e *ParseError) Error() string { return "invalid JSON-RPC message: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// StdioTransport speaks newline delimited JSON-RPC over a reader/writer pair
type StdioTransport struct {
	scanner *bufio.Scanner
	writer  *bufio.Writer
	mu      sync.Mutex
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport is NewStdioTransport over arbitrary streams
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	return &StdioTransport{
		scanner: sc,
		writer:  bufio.NewWriter(w),
	}
}

// ReadRequest reads the next non-blank line and parses it.
// io.EOF means the client went away.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	for t.scanner.Scan() {
		line := bytes.TrimSpace(t.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		logger.Debug("Received raw request:", string(line))
		req, err := protocol.ParseJsonRpcRequest(line)
		if err != nil {
			raw := append([]byte(nil), line...)
			return nil, &ParseError{Raw: raw, Err: err}
		}
		return req, nil
	}
	if err := t.scanner.Err(); err != nil {
		logger.Error("Error reading from stdin:", err)
		return nil, err
	}
	logger.Info("Received EOF on stdin, client disconnected")
	return nil, io.EOF
}

// WriteResponse writes one compact JSON line and flushes it
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	b, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	b = append(b, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(b); err != nil {
		return err
	}
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}
	logger.Debug("Sent response:", string(bytes.TrimSpace(b)))
	return nil
}

// IsParseError reports whether err came from a malformed message
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
