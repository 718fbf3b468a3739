package verify

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/workerproc"
)

const CallTestWorldSeed = "test_world_seed"

// World seeds travel as signed 64-bit integers, the form users paste into
// the game.
type testRequest struct {
	WorldSeed   int64     `json:"world_seed"`
	StartChunkX int16     `json:"start_chunk_x"`
	StartChunkZ int16     `json:"start_chunk_z"`
	Aux         [2]uint32 `json:"aux"`
}

// ProcessVerifier delegates to an external verifier process.
type ProcessVerifier struct {
	client *workerproc.Client
}

func StartProcess(ctx context.Context, args []string) (*ProcessVerifier, error) {
	c, err := workerproc.Start(ctx, workerproc.Options{Name: "verifier", Args: args})
	if err != nil {
		return nil, err
	}
	return &ProcessVerifier{client: c}, nil
}

func (v *ProcessVerifier) Verify(ctx context.Context, s layout.Survivor) (bool, error) {
	c := s.Candidate()
	var ok bool
	err := v.client.Call(ctx, CallTestWorldSeed, testRequest{
		WorldSeed:   int64(s.WorldSeed),
		StartChunkX: c.StartChunkX,
		StartChunkZ: c.StartChunkZ,
		Aux:         s.Aux,
	}, &ok)
	return ok, err
}

func (v *ProcessVerifier) Close() error {
	return v.client.Close()
}

// Handlers serves a Verifier over the worker protocol.
func Handlers(v Verifier) map[string]workerproc.Handler {
	return map[string]workerproc.Handler{
		CallTestWorldSeed: func(ctx context.Context, data json.RawMessage) (any, error) {
			var req testRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, err
			}
			return v.Verify(ctx, layout.Survivor{WorldSeed: uint64(req.WorldSeed), Aux: req.Aux})
		},
	}
}
