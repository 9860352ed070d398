package preproc

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPreprocessorShape(t *testing.T) {
	p := &Preprocessor{Width: 12, Height: 4}
	tensor, err := p.Image(testImage(60, 20))
	if err != nil {
		t.Fatal(err)
	}
	if tensor.Width != 12 || tensor.Height != 4 {
		t.Errorf("expected 12x4 but got %dx%d", tensor.Width, tensor.Height)
	}
	if len(tensor.Data) != 12*4 {
		t.Fatalf("expected %d values but got %d", 12*4, len(tensor.Data))
	}
	for i, x := range tensor.Data {
		if x < 0 || x > 1 {
			t.Errorf("value %d out of range: %f", i, x)
		}
	}
}

func TestPreprocessorTimeMajor(t *testing.T) {
	// Left half black, right half white: the first column
	// of the tensor must be dark and the last bright.
	img := image.NewGray(image.Rect(0, 0, 40, 10))
	for y := 0; y < 10; y++ {
		for x := 20; x < 40; x++ {
			img.Pix[y*img.Stride+x] = 0xff
		}
	}
	p := &Preprocessor{Width: 20, Height: 5}
	tensor, err := p.Image(img)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 5; y++ {
		first := tensor.Data[y]
		last := tensor.Data[19*5+y]
		if first > 0.3 || last < 0.7 {
			t.Errorf("row %d: expected dark-to-bright but got %f to %f",
				y, first, last)
		}
	}
}

func TestPreprocessorDeterminism(t *testing.T) {
	p := &Preprocessor{Width: 16, Height: 8}
	first, err := p.Image(testImage(33, 17))
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Image(testImage(33, 17))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different tensors")
	}
}

func TestPreprocessorFile(t *testing.T) {
	img := testImage(30, 10)
	path := filepath.Join(t.TempDir(), "sample.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	p := &Preprocessor{Width: 10, Height: 5}
	fromFile, err := p.File(path)
	if err != nil {
		t.Fatal(err)
	}
	fromImage, err := p.Image(img)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromFile, fromImage) {
		t.Error("file and in-memory preprocessing disagree")
	}
}

func TestPreprocessorShapeMismatch(t *testing.T) {
	p := &Preprocessor{Width: 10, Height: 5}
	if _, err := p.Image(image.NewGray(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	} else if _, ok := err.(*ShapeMismatchError); !ok {
		t.Errorf("expected *ShapeMismatchError but got %T", err)
	}
}

func testImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*7 + y*13) % 256)
		}
	}
	return img
}
