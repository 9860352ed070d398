package decode

import (
	"reflect"
	"testing"

	"github.com/puriyaj/captchanet/vocab"
)

func TestGreedyCollapse(t *testing.T) {
	// One dominant class across every timestep decodes to
	// a single symbol.
	seq := [][]float64{
		{0.1, 0.8, 0.1},
		{0.2, 0.7, 0.1},
		{0.1, 0.6, 0.3},
		{0.3, 0.5, 0.2},
	}
	if actual := Greedy(seq); !reflect.DeepEqual(actual, []int{1}) {
		t.Errorf("expected [1] but got %v", actual)
	}
}

func TestGreedyBlankBreaks(t *testing.T) {
	// A blank spike between two identical runs keeps them
	// from merging.
	seq := [][]float64{
		{0.8, 0.1, 0.1},
		{0.7, 0.1, 0.2},
		{0.1, 0.1, 0.8},
		{0.9, 0.05, 0.05},
	}
	if actual := Greedy(seq); !reflect.DeepEqual(actual, []int{0, 0}) {
		t.Errorf("expected [0 0] but got %v", actual)
	}
}

func TestGreedyDropsBlanks(t *testing.T) {
	seq := [][]float64{
		{0.1, 0.1, 0.8},
		{0.1, 0.8, 0.1},
		{0.8, 0.1, 0.1},
		{0.1, 0.1, 0.8},
	}
	if actual := Greedy(seq); !reflect.DeepEqual(actual, []int{1, 0}) {
		t.Errorf("expected [1 0] but got %v", actual)
	}
}

func TestGreedyTies(t *testing.T) {
	// Equal probabilities break toward the lowest index.
	seq := [][]float64{
		{0.5, 0.5, 0},
	}
	if actual := Greedy(seq); !reflect.DeepEqual(actual, []int{0}) {
		t.Errorf("expected [0] but got %v", actual)
	}
}

func TestGreedyLogDomain(t *testing.T) {
	seq := [][]float64{
		{-0.1, -5, -9},
		{-9, -0.2, -4},
	}
	if actual := Greedy(seq); !reflect.DeepEqual(actual, []int{0, 1}) {
		t.Errorf("expected [0 1] but got %v", actual)
	}
}

func TestText(t *testing.T) {
	codec := vocab.NewCodec([]string{"AB", "BA"})
	seq := [][]float64{
		{0.8, 0.1, 0.1},
		{0.1, 0.1, 0.8},
		{0.1, 0.8, 0.1},
	}
	if actual := Text(codec, seq); actual != "AB" {
		t.Errorf("expected %q but got %q", "AB", actual)
	}
}

func TestTextTruncates(t *testing.T) {
	codec := vocab.NewCodec([]string{"AB"})
	seq := [][]float64{
		{0.9, 0.05, 0.05},
		{0.05, 0.9, 0.05},
		{0.9, 0.05, 0.05},
	}
	if actual := Text(codec, seq); actual != "AB" {
		t.Errorf("expected %q but got %q", "AB", actual)
	}
}
