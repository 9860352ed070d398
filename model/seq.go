package model

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// timeSeq exposes the rows of a batch of conv feature
// maps as a sequence with one timestep per row.
//
// The conv output is packed image-major while sequence
// batches are time-major, so both Output and Propagate
// reshuffle slices between the two layouts.
// All sequences share one length, so every timestep has a
// fully-present batch.
type timeSeq struct {
	In       anydiff.Res
	Out      []*anyseq.Batch
	NumSeqs  int
	Steps    int
	Features int
}

func newTimeSeq(in anydiff.Res, n, steps, features int) anyseq.Seq {
	c := in.Output().Creator()
	present := make([]bool, n)
	for i := range present {
		present[i] = true
	}
	out := make([]*anyseq.Batch, steps)
	for t := range out {
		parts := make([]anyvec.Vector, n)
		for s := 0; s < n; s++ {
			start := (s*steps + t) * features
			parts[s] = in.Output().Slice(start, start+features)
		}
		out[t] = &anyseq.Batch{Packed: c.Concat(parts...), Present: present}
	}
	return &timeSeq{
		In:       in,
		Out:      out,
		NumSeqs:  n,
		Steps:    steps,
		Features: features,
	}
}

func (t *timeSeq) Creator() anyvec.Creator {
	return t.In.Output().Creator()
}

func (t *timeSeq) Output() []*anyseq.Batch {
	return t.Out
}

func (t *timeSeq) Vars() anydiff.VarSet {
	return t.In.Vars()
}

func (t *timeSeq) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	parts := make([]anyvec.Vector, 0, t.NumSeqs*t.Steps)
	for s := 0; s < t.NumSeqs; s++ {
		for step := 0; step < t.Steps; step++ {
			packed := u[step].Packed
			parts = append(parts, packed.Slice(s*t.Features, (s+1)*t.Features))
		}
	}
	t.In.Propagate(t.Creator().Concat(parts...), g)
}
