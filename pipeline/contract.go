package pipeline

import (
	"context"

	"github.com/hupe1980/tripmesh/core"
)

// Contract documents the state keys a stage reads and writes. Keys are
// qualified ("user:call_count", "temp:x", or bare for the session scope).
type Contract struct {
	Reads  []string
	Writes []string
}

// Stage decorates a handler with its state contract. It is itself a core.Handler.
type Stage struct {
	core.Handler
	Contract Contract
}

// WithContract attaches a state contract to h.
func WithContract(h core.Handler, reads, writes []string) *Stage {
	return &Stage{Handler: h, Contract: Contract{Reads: reads, Writes: writes}}
}

// Missing returns the keys of keys that are absent from store.
func Missing(ctx context.Context, store core.StateStore, keys []string) []string {
	var missing []string
	for _, qualified := range keys {
		scope, key := core.ParseKey(qualified)
		if _, ok, err := store.Get(ctx, scope, key); err != nil || !ok {
			missing = append(missing, qualified)
		}
	}
	return missing
}

// StageInfo is one row of Describe.
type StageInfo struct {
	Name   string
	Reads  []string
	Writes []string
}

// Describe lists the stages of p with their contracts. Stages without a
// contract report empty key sets.
func Describe(p *Pipeline) []StageInfo {
	out := make([]StageInfo, 0, len(p.stages))
	for _, h := range p.stages {
		info := StageInfo{Name: h.Name()}
		if s, ok := h.(*Stage); ok {
			info.Reads = s.Contract.Reads
			info.Writes = s.Contract.Writes
		}
		out = append(out, info)
	}
	return out
}
