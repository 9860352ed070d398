// Package model implements the convolutional-recurrent
// network that reads fixed-size captcha images.
package model

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	conv1Filters = 32
	conv2Filters = 64

	projSize  = 64
	rnn1State = 128
	rnn2State = 64

	projKeepProb = 0.8
	rnnKeepProb  = 0.75
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A DegenerateSequenceError indicates a configuration
// whose downsampled time axis is shorter than the longest
// label.
// CTC cannot align such labels, so this must be caught
// when the model is configured, not discovered as a
// useless loss mid-training.
type DegenerateSequenceError struct {
	TimeSteps   int
	MaxLabelLen int
}

// Error returns a message with both lengths.
func (d *DegenerateSequenceError) Error() string {
	return fmt.Sprintf("degenerate sequence: %d timesteps cannot align labels up to length %d",
		d.TimeSteps, d.MaxLabelLen)
}

// A Model maps batches of preprocessed captcha images to
// per-timestep log-probabilities over NumClasses+1
// classes, the extra class being the CTC blank.
//
// The feature extractor is two padded 3x3 convolutions,
// each followed by 2x2 max pooling, for a total 4x
// downsampling along both axes.
// The remaining columns of the feature map become
// timesteps: each is projected through a dense layer with
// dropout and fed to two stacked bidirectional LSTMs,
// then a final dense layer with log-softmax.
//
// The bidirectional stages are not anyrnn.Blocks, so the
// recurrent stack is stored as its five stages and Apply
// alternates between anyrnn.Map and Bidir.Apply.
type Model struct {
	Width      int
	Height     int
	NumClasses int

	Conv anynet.Net
	Proj *anyrnn.LayerBlock
	RNN1 *anyrnn.Bidir
	Mid  *anyrnn.LayerBlock
	RNN2 *anyrnn.Bidir
	Out  *anyrnn.LayerBlock
}

// New creates a randomized model for the image geometry
// and alphabet size.
//
// It fails with a *DegenerateSequenceError if the
// downsampled time axis is shorter than maxLabelLen.
func New(c anyvec.Creator, width, height, numClasses, maxLabelLen int) (*Model, error) {
	// The preprocessor emits time-major tensors, so the
	// conv stack sees an input whose rows run along the
	// source image's horizontal axis.
	pad1 := &anyconv.Padding{
		InputWidth:  height,
		InputHeight: width,
		InputDepth:  1,

		PaddingTop:    1,
		PaddingRight:  1,
		PaddingBottom: 1,
		PaddingLeft:   1,
	}
	conv1 := &anyconv.Conv{
		FilterCount:  conv1Filters,
		FilterWidth:  3,
		FilterHeight: 3,
		StrideX:      1,
		StrideY:      1,

		InputWidth:  height + 2,
		InputHeight: width + 2,
		InputDepth:  1,
	}
	conv1.InitRand(c)
	pool1 := &anyconv.MaxPool{
		SpanX:       2,
		SpanY:       2,
		StrideX:     2,
		StrideY:     2,
		InputWidth:  conv1.OutputWidth(),
		InputHeight: conv1.OutputHeight(),
		InputDepth:  conv1.OutputDepth(),
	}
	pad2 := &anyconv.Padding{
		InputWidth:  pool1.OutputWidth(),
		InputHeight: pool1.OutputHeight(),
		InputDepth:  pool1.OutputDepth(),

		PaddingTop:    1,
		PaddingRight:  1,
		PaddingBottom: 1,
		PaddingLeft:   1,
	}
	conv2 := &anyconv.Conv{
		FilterCount:  conv2Filters,
		FilterWidth:  3,
		FilterHeight: 3,
		StrideX:      1,
		StrideY:      1,

		InputWidth:  pool1.OutputWidth() + 2,
		InputHeight: pool1.OutputHeight() + 2,
		InputDepth:  pool1.OutputDepth(),
	}
	conv2.InitRand(c)
	pool2 := &anyconv.MaxPool{
		SpanX:       2,
		SpanY:       2,
		StrideX:     2,
		StrideY:     2,
		InputWidth:  conv2.OutputWidth(),
		InputHeight: conv2.OutputHeight(),
		InputDepth:  conv2.OutputDepth(),
	}

	timeSteps := pool2.OutputHeight()
	features := pool2.OutputWidth() * pool2.OutputDepth()
	if timeSteps < maxLabelLen {
		return nil, &DegenerateSequenceError{
			TimeSteps:   timeSteps,
			MaxLabelLen: maxLabelLen,
		}
	}

	res := &Model{
		Width:      width,
		Height:     height,
		NumClasses: numClasses,

		Conv: anynet.Net{pad1, conv1, pool1, pad2, conv2, pool2},
		Proj: &anyrnn.LayerBlock{
			Layer: anynet.Net{
				anynet.NewFC(c, features, projSize),
				anynet.ReLU,
				&anynet.Dropout{KeepProb: projKeepProb},
			},
		},
		RNN1: bidir(c, projSize, rnn1State),
		Mid: &anyrnn.LayerBlock{
			Layer: &anynet.Dropout{KeepProb: rnnKeepProb},
		},
		RNN2: bidir(c, rnn1State*2, rnn2State),
		Out: &anyrnn.LayerBlock{
			Layer: anynet.Net{
				anynet.NewFC(c, rnn2State*2, numClasses+1),
				anynet.LogSoftmax,
			},
		},
	}
	return res, nil
}

func bidir(c anyvec.Creator, in, state int) *anyrnn.Bidir {
	return &anyrnn.Bidir{
		Forward:  anyrnn.NewLSTM(c, in, state),
		Backward: anyrnn.NewLSTM(c, in, state),
		Mixer:    anynet.ConcatMixer{},
	}
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var width, height, classes serializer.Int
	var conv anynet.Net
	var proj, mid, out *anyrnn.LayerBlock
	var rnn1, rnn2 *anyrnn.Bidir
	err := serializer.DeserializeAny(d, &width, &height, &classes,
		&conv, &proj, &rnn1, &mid, &rnn2, &out)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &Model{
		Width:      int(width),
		Height:     int(height),
		NumClasses: int(classes),

		Conv: conv,
		Proj: proj,
		RNN1: rnn1,
		Mid:  mid,
		RNN2: rnn2,
		Out:  out,
	}, nil
}

// TimeSteps returns the length of the downsampled time
// axis.
func (m *Model) TimeSteps() int {
	return m.Width / 2 / 2
}

// FeatureSize returns the flattened feature count per
// timestep after the conv stack.
func (m *Model) FeatureSize() int {
	return (m.Height / 2 / 2) * conv2Filters
}

// Creator returns the creator of the model's parameters.
func (m *Model) Creator() anyvec.Creator {
	return m.Parameters()[0].Vector.Creator()
}

// Apply runs the model on a packed batch of n images.
//
// The result has TimeSteps() batches, each packing n
// vectors of NumClasses+1 log-probabilities.
// Apply is stateless given fixed parameters and is safe
// for concurrent use once training has stopped.
func (m *Model) Apply(images anydiff.Res, n int) anyseq.Seq {
	if images.Output().Len() != n*m.Width*m.Height {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			n*m.Width*m.Height, images.Output().Len()))
	}
	features := m.Conv.Apply(images, n)
	seq := newTimeSeq(features, n, m.TimeSteps(), m.FeatureSize())
	seq = anyrnn.Map(seq, m.Proj)
	seq = m.RNN1.Apply(seq)
	seq = anyrnn.Map(seq, m.Mid)
	seq = m.RNN2.Apply(seq)
	return anyrnn.Map(seq, m.Out)
}

// Parameters returns the learnable parameters of the conv
// stack and the recurrent stack.
func (m *Model) Parameters() []*anydiff.Var {
	res := m.Conv.Parameters()
	stages := []anynet.Parameterizer{m.Proj, m.RNN1, m.Mid, m.RNN2, m.Out}
	for _, stage := range stages {
		res = append(res, stage.Parameters()...)
	}
	return res
}

// SetDropout enables or disables the dropout layers.
// Dropout should be enabled during training only.
func (m *Model) SetDropout(enabled bool) {
	setLayerDropout(m.Conv, enabled)
	for _, lb := range []*anyrnn.LayerBlock{m.Proj, m.Mid, m.Out} {
		setLayerDropout(lb.Layer, enabled)
	}
}

func setLayerDropout(layer anynet.Layer, enabled bool) {
	switch layer := layer.(type) {
	case *anynet.Dropout:
		layer.Enabled = enabled
	case anynet.Net:
		for _, sub := range layer {
			setLayerDropout(sub, enabled)
		}
	}
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/puriyaj/captchanet/model.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(m.Width),
		serializer.Int(m.Height),
		serializer.Int(m.NumClasses),
		m.Conv,
		m.Proj,
		m.RNN1,
		m.Mid,
		m.RNN2,
		m.Out,
	)
}
