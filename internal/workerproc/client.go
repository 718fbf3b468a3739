// Package workerproc speaks the worker protocol: newline-delimited JSON
// messages of the form {"id","call","data"} answered by {"id","data"} or
// {"id","error"}. A worker announces itself with {"call":"ready"} and may
// interleave {"call":"log","data":"..."} lines at any time.
package workerproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/samcharles93/seedscan/internal/logger"
)

var (
	// ErrReentered is returned when a call is issued while another call on
	// the same worker is still outstanding.
	ErrReentered = errors.New("worker call reentered")
	ErrClosed    = errors.New("worker closed")
)

const (
	callReady = "ready"
	callLog   = "log"
)

type request struct {
	ID   uint64          `json:"id"`
	Call string          `json:"call"`
	Data json.RawMessage `json:"data,omitempty"`
}

type message struct {
	ID    *uint64         `json:"id,omitempty"`
	Call  string          `json:"call,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// CallError carries an error string reported by the worker.
type CallError struct {
	Call string
	Msg  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("worker %s: %s", e.Call, e.Msg)
}

type Options struct {
	// Name labels the worker in logs.
	Name string
	// Args is the command line; Args[0] is resolved through PATH.
	Args []string
	// Env is appended to the current environment.
	Env []string
}

// Client owns one worker process. Calls are strictly one at a time.
type Client struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	log   logger.Logger

	msgs     chan message
	readErr  error
	done     chan struct{}
	readDone chan struct{}

	busy   atomic.Bool
	nextID atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// Start launches the worker and waits for its ready message.
func Start(ctx context.Context, opts Options) (*Client, error) {
	if len(opts.Args) == 0 {
		return nil, errors.New("worker command is empty")
	}
	cmd := exec.Command(opts.Args[0], opts.Args[1:]...)
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %q: %w", opts.Args[0], err)
	}

	name := opts.Name
	if name == "" {
		name = opts.Args[0]
	}
	c := &Client{
		name:  name,
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		log:   logger.FromContext(ctx).With("worker", name, "pid", cmd.Process.Pid),
		msgs:     make(chan message, 1),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go c.read(stdout)

	if err := c.await(ctx, func(m message) bool { return m.Call == callReady }, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("worker %s did not become ready: %w", name, err)
	}
	c.log.Debug("worker ready")
	return c, nil
}

func (c *Client) read(r io.Reader) {
	defer close(c.readDone)
	defer close(c.msgs)
	br := bufio.NewReaderSize(r, 1<<16)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			var m message
			if jerr := json.Unmarshal(line, &m); jerr != nil {
				c.log.Warn("worker wrote malformed message", "error", jerr)
			} else if m.Call == callLog {
				var text string
				_ = json.Unmarshal(m.Data, &text)
				c.log.Info(text)
			} else {
				select {
				case c.msgs <- m:
				case <-c.done:
					c.readErr = ErrClosed
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.readErr = err
			} else {
				c.readErr = io.ErrUnexpectedEOF
			}
			return
		}
	}
}

// await consumes messages until match accepts one. Unmatched messages are
// stale replies and are dropped.
func (c *Client) await(ctx context.Context, match func(message) bool, got *message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-c.msgs:
			if !ok {
				return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
			}
			if !match(m) {
				continue
			}
			if got != nil {
				*got = m
			}
			return nil
		}
	}
}

// Call sends one request and decodes the reply into out (which may be nil).
// Cancelling ctx while the call is outstanding terminates the worker, since
// its reply can no longer be paired with a caller.
func (c *Client) Call(ctx context.Context, call string, in, out any) error {
	if !c.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrReentered, call)
	}
	defer c.busy.Store(false)

	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", call, err)
	}
	id := c.nextID.Add(1)
	if err := c.enc.Encode(request{ID: id, Call: call, Data: data}); err != nil {
		return fmt.Errorf("%w: send %s: %v", ErrClosed, call, err)
	}

	var reply message
	err = c.await(ctx, func(m message) bool { return m.ID != nil && *m.ID == id }, &reply)
	if err != nil {
		if ctx.Err() != nil {
			_ = c.Close()
		}
		return err
	}
	if reply.Error != "" {
		return &CallError{Call: call, Msg: reply.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(reply.Data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", call, err)
	}
	return nil
}

func (c *Client) Name() string { return c.name }

// Close terminates the worker and reaps it once its stdout has been drained.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.stdin.Close()
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		// Wait closes the stdout pipe.
		<-c.readDone
		err := c.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			c.closeErr = err
		}
		c.log.Debug("worker terminated")
	})
	return c.closeErr
}
