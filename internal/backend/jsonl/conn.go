// Package jsonl carries the backend boundary as newline-delimited JSON over a
// byte stream (a unix socket or a spawned backend process).
//
// Each line is one JSON object:
//
//	request:  {"id":"01J...","command":"get_week_stats","args":{"weekOffset":-1}}
//	response: {"id":"01J...","result":{...}}  or  {"id":"01J...","error":"message"}
//	event:    {"event":"heartbeat","timestamp":"2025-01-01T10:00:00","state":"Normal",...}
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// maxLineSize bounds a single line; debug frames carry base64 JPEGs.
const maxLineSize = 16 * 1024 * 1024

type request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Args    any    `json:"args,omitempty"`
}

// envelope is the union of the fields used to classify an incoming line.
type envelope struct {
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

type reply struct {
	result json.RawMessage
	errMsg string
	failed bool
}

// Conn multiplexes commands and events over one stream.
type Conn struct {
	w      io.Writer
	closer io.Closer
	bus    *event.Bus
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan reply
	closed  bool
	readErr error
	done    chan struct{}
}

// NewConn starts reading r in the background. Events are published on bus and
// replies are matched to pending calls by id. closer may be nil.
func NewConn(r io.Reader, w io.Writer, closer io.Closer, bus *event.Bus, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		w:       w,
		closer:  closer,
		bus:     bus,
		logger:  logger,
		pending: make(map[string]chan reply),
		done:    make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

// Done is closed once the read side has ended.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read side, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Call sends command and waits for its reply. When out is non-nil and the reply
// carries a result, the result is decoded into out.
func (c *Conn) Call(ctx context.Context, command string, args any, out any) error {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate request id: %w", err)
	}
	reqID := id.String()

	ch := make(chan reply, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return backend.ErrClosed
	}
	c.pending[reqID] = ch
	c.mu.Unlock()

	if err := c.send(request{ID: reqID, Command: command, Args: args}); err != nil {
		c.forget(reqID)
		return &backend.CommandError{Command: command, Cause: err}
	}

	c.logger.Debug("backend command sent", "command", command, "id", reqID)

	select {
	case r := <-ch:
		if r.failed {
			return &backend.CommandError{Command: command, Message: r.errMsg}
		}
		if out != nil && len(r.result) > 0 && !bytes.Equal(r.result, []byte("null")) {
			if err := json.Unmarshal(r.result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", command, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(reqID)
		return ctx.Err()
	case <-c.done:
		c.forget(reqID)
		return backend.ErrClosed
	}
}

func (c *Conn) send(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.w.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close shuts the stream down. Pending calls fail with backend.ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *Conn) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		c.handleLine(bytes.Clone(line))
	}

	err := scanner.Err()
	c.mu.Lock()
	c.closed = true
	c.readErr = err
	c.pending = make(map[string]chan reply)
	c.mu.Unlock()
	close(c.done)

	if err != nil && !errors.Is(err, io.EOF) {
		c.logger.Warn("backend stream ended", "error", err)
	} else {
		c.logger.Debug("backend stream closed")
	}
}

func (c *Conn) handleLine(line []byte) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		c.logger.Debug("ignoring non-JSON backend output", "line", string(line))
		return
	}

	switch {
	case env.Event != "":
		c.publish(env, line)
	case env.ID != "":
		c.resolve(env)
	default:
		c.logger.Debug("ignoring unrecognised backend line", "line", string(line))
	}
}

func (c *Conn) publish(env envelope, line []byte) {
	name := event.Name(env.Event)
	if !name.Known() {
		c.logger.Debug("unknown backend event", "event", env.Event)
	}
	if c.bus == nil {
		return
	}
	c.bus.Publish(event.Event{
		Name:    name,
		At:      event.ParseTime(env.Timestamp),
		Payload: line,
	})
}

func (c *Conn) resolve(env envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("reply for unknown request", "id", env.ID)
		return
	}

	r := reply{result: env.Result}
	if len(env.Error) > 0 && !bytes.Equal(env.Error, []byte("null")) {
		r.failed = true
		var msg string
		if err := json.Unmarshal(env.Error, &msg); err != nil {
			msg = string(env.Error)
		}
		r.errMsg = msg
	}
	ch <- r
}
