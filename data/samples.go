// Package data manages labeled captcha samples: lazy
// preprocessing, train/validation splitting, and corpus
// scanning.
package data

import (
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	"github.com/puriyaj/captchanet/preproc"
	"github.com/puriyaj/captchanet/vocab"
)

// A Sample references a captcha image on disk together
// with its ground-truth label.
type Sample struct {
	Path  string
	Label string
}

// An Encoded is a preprocessed sample: the packed image
// tensor and the label's class indices.
type Encoded struct {
	Image   anyvec.Vector
	Classes []int
}

// A List is an anysgd.SampleList over labeled captcha
// images.
//
// Preprocessing and label encoding happen lazily in
// GetSample, so a List is cheap to build, shuffle, and
// slice.
type List struct {
	Creator anyvec.Creator
	Samples []*Sample
	Prep    *preproc.Preprocessor
	Codec   *vocab.Codec
}

// NewList creates a List over the samples.
func NewList(c anyvec.Creator, samples []*Sample, prep *preproc.Preprocessor,
	codec *vocab.Codec) *List {
	return &List{Creator: c, Samples: samples, Prep: prep, Codec: codec}
}

// Len returns the number of samples.
func (l *List) Len() int {
	return len(l.Samples)
}

// Swap swaps two samples.
func (l *List) Swap(i, j int) {
	l.Samples[i], l.Samples[j] = l.Samples[j], l.Samples[i]
}

// Slice copies a sub-slice of the list.
func (l *List) Slice(i, j int) anysgd.SampleList {
	return &List{
		Creator: l.Creator,
		Samples: append([]*Sample{}, l.Samples[i:j]...),
		Prep:    l.Prep,
		Codec:   l.Codec,
	}
}

// GetSample preprocesses and encodes the sample at the
// index.
//
// A failure to read or decode the image is specific to
// that sample; an encoding failure (vocab.UnknownCharError)
// indicates a codec built from the wrong label set and
// should not be swallowed.
func (l *List) GetSample(idx int) (*Encoded, error) {
	sample := l.Samples[idx]
	tensor, err := l.Prep.File(sample.Path)
	if err != nil {
		return nil, err
	}
	classes, err := l.Codec.Encode(sample.Label)
	if err != nil {
		return nil, essentials.AddCtx("encode "+sample.Path, err)
	}
	return &Encoded{
		Image:   tensor.Vector(l.Creator),
		Classes: classes,
	}, nil
}

// Labels returns the label of every sample, in order.
func (l *List) Labels() []string {
	res := make([]string, len(l.Samples))
	for i, s := range l.Samples {
		res[i] = s.Label
	}
	return res
}
