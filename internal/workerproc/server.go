package workerproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Handler serves one call. The returned value is encoded as the reply data.
type Handler func(ctx context.Context, data json.RawMessage) (any, error)

type server struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (s *server) send(m any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(m)
}

type serverKey struct{}

// Logf forwards a log line to the client when ctx belongs to a call served by
// Serve. Elsewhere it does nothing.
func Logf(ctx context.Context, format string, args ...any) {
	s, ok := ctx.Value(serverKey{}).(*server)
	if !ok {
		return
	}
	_ = s.send(struct {
		Call string `json:"call"`
		Data string `json:"data"`
	}{callLog, fmt.Sprintf(format, args...)})
}

// Serve answers requests from r on w, one at a time, until r is exhausted or
// ctx ends.
func Serve(ctx context.Context, r io.Reader, w io.Writer, handlers map[string]Handler) error {
	s := &server{enc: json.NewEncoder(w)}
	if err := s.send(message{Call: callReady}); err != nil {
		return err
	}
	ctx = context.WithValue(ctx, serverKey{}, s)

	br := bufio.NewReaderSize(r, 1<<16)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if serr := s.handle(ctx, line, handlers); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *server) handle(ctx context.Context, line []byte, handlers map[string]Handler) error {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}
	id := req.ID
	h, ok := handlers[req.Call]
	if !ok {
		return s.send(message{ID: &id, Error: fmt.Sprintf("unknown call %q", req.Call)})
	}
	out, err := h(ctx, req.Data)
	if err != nil {
		return s.send(message{ID: &id, Error: err.Error()})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return s.send(message{ID: &id, Error: err.Error()})
	}
	return s.send(message{ID: &id, Data: data})
}
