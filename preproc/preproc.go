// Package preproc converts captcha images into the
// fixed-size tensors consumed by the model.
package preproc

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Default captcha geometry.
const (
	DefaultWidth  = 300
	DefaultHeight = 50
)

// A ShapeMismatchError indicates an input image whose
// decoded shape cannot be preprocessed.
type ShapeMismatchError struct {
	Reason string
}

// Error returns a message describing the mismatch.
func (s *ShapeMismatchError) Error() string {
	return "shape mismatch: " + s.Reason
}

// A Tensor is a single-channel image in time-major
// layout: the first axis is the source image's horizontal
// axis, so Data[x*Height+y] holds the pixel at column x
// and row y, scaled to [0, 1].
//
// Captcha text runs left to right, so the column axis is
// the recurrent stage's time axis.
type Tensor struct {
	Width  int
	Height int
	Data   []float64
}

// Vector packs the tensor for use as network input.
func (t *Tensor) Vector(c anyvec.Creator) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(t.Data))
}

// A Preprocessor scales raster images to a fixed
// geometry.
//
// The transform is pure and deterministic: identical
// input bytes always produce identical tensors.
type Preprocessor struct {
	Width  int
	Height int
}

// File reads and preprocesses a single image file.
// PNG and JPEG inputs are supported.
func (p *Preprocessor) File(path string) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("preprocess "+path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, essentials.AddCtx("preprocess "+path, err)
	}
	t, err := p.Image(img)
	if err != nil {
		return nil, essentials.AddCtx("preprocess "+path, err)
	}
	return t, nil
}

// Image preprocesses a decoded image: grayscale, resize
// to the target geometry, then transpose to time-major
// with values in [0, 1].
func (p *Preprocessor) Image(img image.Image) (*Tensor, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, &ShapeMismatchError{
			Reason: fmt.Sprintf("invalid target size %dx%d", p.Width, p.Height),
		}
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, &ShapeMismatchError{
			Reason: fmt.Sprintf("source bounds %v are empty", img.Bounds()),
		}
	}

	gray := imaging.Grayscale(img)
	scaled := imaging.Resize(gray, p.Width, p.Height, imaging.Lanczos)

	data := make([]float64, p.Width*p.Height)
	idx := 0
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			r, _, _, _ := scaled.At(x, y).RGBA()
			data[idx] = float64(r) / 0xffff
			idx++
		}
	}
	return &Tensor{Width: p.Width, Height: p.Height, Data: data}, nil
}
