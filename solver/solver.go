// Package solver exposes end-to-end captcha reading and
// artifact persistence.
package solver

import (
	"image"
	"os"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"

	"github.com/puriyaj/captchanet/decode"
	"github.com/puriyaj/captchanet/model"
	"github.com/puriyaj/captchanet/preproc"
	"github.com/puriyaj/captchanet/vocab"
)

// A Solver bundles a trained model with the codec it was
// trained against.
// The two are persisted together because each is useless
// without the other: the model's classes only mean
// anything under the codec's index assignment.
type Solver struct {
	Codec *vocab.Codec
	Model *model.Model
	Prep  *preproc.Preprocessor
}

// New creates a Solver around a model and its codec.
func New(codec *vocab.Codec, m *model.Model) *Solver {
	return &Solver{
		Codec: codec,
		Model: m,
		Prep:  &preproc.Preprocessor{Width: m.Width, Height: m.Height},
	}
}

// Load reads an artifact produced by Save.
func Load(path string) (*Solver, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load solver", err)
	}
	var codec *vocab.Codec
	var m *model.Model
	if err := serializer.DeserializeAny(contents, &codec, &m); err != nil {
		return nil, essentials.AddCtx("load solver", err)
	}
	return New(codec, m), nil
}

// Save writes the codec and model to a single artifact
// file.
func (s *Solver) Save(path string) error {
	contents, err := serializer.SerializeAny(s.Codec, s.Model)
	if err != nil {
		return essentials.AddCtx("save solver", err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return essentials.AddCtx("save solver", err)
	}
	return nil
}

// Predict reads the text from a single captcha image.
// It is safe for concurrent use once training has
// stopped.
func (s *Solver) Predict(img image.Image) (string, error) {
	tensor, err := s.Prep.Image(img)
	if err != nil {
		return "", essentials.AddCtx("predict", err)
	}
	return s.predict(tensor), nil
}

// PredictFile reads the text from a captcha image file.
func (s *Solver) PredictFile(path string) (string, error) {
	tensor, err := s.Prep.File(path)
	if err != nil {
		return "", essentials.AddCtx("predict", err)
	}
	return s.predict(tensor), nil
}

func (s *Solver) predict(t *preproc.Tensor) string {
	in := anydiff.NewConst(t.Vector(s.Model.Creator()))
	out := s.Model.Apply(in, 1)
	return decode.Text(s.Codec, decode.Outputs(out)[0])
}
