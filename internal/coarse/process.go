package coarse

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/workerproc"
)

const CallGenerateLayouts = "generate_layouts"

type generateRequest struct {
	Start uint64 `json:"structure_seed_start"`
	End   uint64 `json:"structure_seed_end"`
}

// ProcessWorker delegates to an external generator process. Replies are the
// flat u32 record words, four per candidate.
type ProcessWorker struct {
	client *workerproc.Client
}

// ProcessFactory starts one worker process per pool slot.
func ProcessFactory(args []string) Factory {
	return func(ctx context.Context, index int) (Worker, error) {
		c, err := workerproc.Start(ctx, workerproc.Options{
			Name: fmt.Sprintf("layout-%d", index),
			Args: args,
		})
		if err != nil {
			return nil, err
		}
		return &ProcessWorker{client: c}, nil
	}
}

func (w *ProcessWorker) GenerateLayouts(ctx context.Context, start, end uint64) ([]layout.Candidate, error) {
	var words []uint32
	if err := w.client.Call(ctx, CallGenerateLayouts, generateRequest{Start: start, End: end}, &words); err != nil {
		return nil, err
	}
	if len(words)%layout.Words != 0 {
		return nil, fmt.Errorf("%s returned %d words, not a multiple of %d", CallGenerateLayouts, len(words), layout.Words)
	}
	out := make([]layout.Candidate, len(words)/layout.Words)
	for i := range out {
		out[i] = layout.DecodeCandidate(words[i*layout.Words:])
	}
	return out, nil
}

func (w *ProcessWorker) Close() error {
	return w.client.Close()
}

// Handlers serves a Worker over the worker protocol.
func Handlers(w Worker) map[string]workerproc.Handler {
	return map[string]workerproc.Handler{
		CallGenerateLayouts: func(ctx context.Context, data json.RawMessage) (any, error) {
			var req generateRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, err
			}
			cands, err := w.GenerateLayouts(ctx, req.Start, req.End)
			if err != nil {
				return nil, err
			}
			words := make([]uint32, len(cands)*layout.Words)
			for i, c := range cands {
				c.Put(words[i*layout.Words:])
			}
			return words, nil
		},
	}
}
