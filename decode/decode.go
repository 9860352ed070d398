// Package decode turns per-timestep class probabilities
// into captcha text.
package decode

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"

	"github.com/puriyaj/captchanet/vocab"
)

// Greedy collapses a per-timestep probability sequence
// into a label.
//
// Each row of seq holds one value per class, the last
// being the blank; rows may be probabilities or log
// probabilities since only the ordering matters.
// The most probable class is taken at each timestep
// independently, consecutive repeats are merged, and
// blanks are removed.
// A blank between two identical symbols keeps them from
// merging.
//
// This is an approximation of the most likely labeling,
// not a search over alignments; ties break toward the
// lowest class index because the scan keeps the first
// maximum.
func Greedy(seq [][]float64) []int {
	res := make([]int, 0, len(seq))
	prev := -1
	for _, row := range seq {
		best := 0
		for i, x := range row {
			if x > row[best] {
				best = i
			}
		}
		blank := len(row) - 1
		if best != prev && best != blank {
			res = append(res, best)
		}
		prev = best
	}
	return res
}

// Text greedily decodes a sequence and maps it through
// the codec, truncating the result to the codec's maximum
// label length.
func Text(c *vocab.Codec, seq [][]float64) string {
	text := []rune(c.Decode(Greedy(seq)))
	if len(text) > c.MaxLabelLen() {
		text = text[:c.MaxLabelLen()]
	}
	return string(text)
}

// Outputs extracts the per-timestep output rows for each
// sequence in a batch.
func Outputs(seqs anyseq.Seq) [][][]float64 {
	sep := anyseq.SeparateSeqs(seqs.Output())
	res := make([][][]float64, len(sep))
	for i, seq := range sep {
		res[i] = make([][]float64, len(seq))
		for j, vec := range seq {
			res[i][j] = vectorFloats(vec.Data())
		}
	}
	return res
}

func vectorFloats(data interface{}) []float64 {
	switch d := data.(type) {
	case []float64:
		return append([]float64{}, d...)
	case []float32:
		res := make([]float64, len(d))
		for i, x := range d {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}
