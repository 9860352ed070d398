package solver

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"

	"github.com/puriyaj/captchanet/model"
	"github.com/puriyaj/captchanet/vocab"
)

func TestSolverRoundTrip(t *testing.T) {
	codec := vocab.NewCodec([]string{"3A7K9B", "XY"})
	m, err := model.New(anyvec32.CurrentCreator(), 24, 8, codec.NumClasses(),
		codec.MaxLabelLen())
	if err != nil {
		t.Fatal(err)
	}
	s := New(codec, m)

	img := testImage(48, 16)
	before, err := s.Predict(img)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "solver")
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	restored, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if restored.Codec.Alphabet() != codec.Alphabet() {
		t.Errorf("expected alphabet %q but got %q", codec.Alphabet(),
			restored.Codec.Alphabet())
	}
	if restored.Model.Width != 24 || restored.Model.Height != 8 {
		t.Errorf("unexpected geometry: %dx%d", restored.Model.Width,
			restored.Model.Height)
	}
	if restored.Prep.Width != 24 || restored.Prep.Height != 8 {
		t.Errorf("preprocessor does not match the model: %dx%d",
			restored.Prep.Width, restored.Prep.Height)
	}

	after, err := restored.Predict(img)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("prediction changed across reload: %q vs %q", before, after)
	}
}

func TestSolverPredictFile(t *testing.T) {
	codec := vocab.NewCodec([]string{"AB"})
	m, err := model.New(anyvec32.CurrentCreator(), 24, 8, codec.NumClasses(),
		codec.MaxLabelLen())
	if err != nil {
		t.Fatal(err)
	}
	s := New(codec, m)

	img := testImage(24, 8)
	path := filepath.Join(t.TempDir(), "sample.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	fromFile, err := s.PredictFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fromImage, err := s.Predict(img)
	if err != nil {
		t.Fatal(err)
	}
	if fromFile != fromImage {
		t.Errorf("file and in-memory predictions disagree: %q vs %q",
			fromFile, fromImage)
	}
}

func TestSolverLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing artifact")
	}
}

func testImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*11 + y*5) % 256)
		}
	}
	return img
}
