package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/logger"
	"github.com/samcharles93/seedscan/internal/verify"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

const (
	maxRangeWidth = 10
	maxRangeCount = 50
)

// parseRanges reads a field spec list, clamping each width to [1, 10] and
// each count to [0, 50].
func parseRanges(s string) ([]xrsr.Range, []xrsr.FieldSpec, error) {
	specs, err := xrsr.ParseFieldSpecs(s)
	if err != nil {
		return nil, nil, err
	}
	for i := range specs {
		specs[i].Width = clamp(specs[i].Width, 1, maxRangeWidth)
		specs[i].Count = clamp(specs[i].Count, 0, maxRangeCount)
	}
	ranges, err := xrsr.MakeRanges(specs)
	if err != nil {
		return nil, nil, err
	}
	return ranges, specs, nil
}

// layoutFactory runs generatorCmd per pool slot, or the in-process synthetic
// generator when it is empty.
func layoutFactory(generatorCmd string, rarityBits int) coarse.Factory {
	if args := strings.Fields(generatorCmd); len(args) > 0 {
		return coarse.ProcessFactory(args)
	}
	return coarse.SyntheticFactory(coarse.Synthetic{RarityBits: rarityBits})
}

func newVerifier(ctx context.Context, verifierCmd string, filterBits, verifyBits int) (verify.Verifier, error) {
	if args := strings.Fields(verifierCmd); len(args) > 0 {
		v, err := verify.StartProcess(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("start verifier: %w", err)
		}
		return v, nil
	}
	return verify.Recompute{FilterBits: filterBits, VerifyBits: verifyBits}, nil
}

type verifierSwapper interface {
	Replace(verify.Verifier) error
}

// reloadVerifiers builds a fresh verifier on every signal and hands it to the
// queue. A failed build keeps the current verifier.
func reloadVerifiers(ctx context.Context, sigs <-chan os.Signal, q verifierSwapper, build func() (verify.Verifier, error)) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
		}
		v, err := build()
		if err != nil {
			log.Warn("reloading verifier, keeping the current one", "error", err)
			continue
		}
		if err := q.Replace(v); err != nil {
			return
		}
		log.Info("verifier reloaded")
	}
}
