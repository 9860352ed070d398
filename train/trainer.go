// Package train wires the dataset, model, and CTC
// objective into an SGD loop with validation-based early
// stopping.
package train

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyctc"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	"github.com/puriyaj/captchanet/data"
	"github.com/puriyaj/captchanet/model"
)

// A Batch stores a packed image batch and the label
// classes for each image.
// Labels keep their own lengths; nothing is padded.
type Batch struct {
	Images anydiff.Res
	Labels [][]int
	Count  int
}

// A Trainer computes CTC gradients for batches of captcha
// samples.
// It implements anysgd.Fetcher and anysgd.Gradienter.
type Trainer struct {
	Model  *model.Model
	Params []*anydiff.Var

	// Workers bounds the number of concurrent
	// preprocessing goroutines per fetch.
	// If it is 0, GOMAXPROCS is used.
	Workers int

	// Average indicates whether or not the total cost
	// should be averaged before computing gradients.
	Average bool

	// After every gradient computation, LastCost is set to
	// the cost from the batch.
	LastCost anyvec.Numeric
}

// Fetch preprocesses and packs a batch of samples using a
// bounded worker pool.
// The s argument must be a *data.List.
//
// A single unreadable image fails the fetch with the
// offending path in the error; the caller may drop that
// sample and retry with the rest.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	l := s.(*data.List)

	encoded := make([]*data.Encoded, l.Len())
	errs := make([]error, l.Len())
	indices := make(chan int, l.Len())
	for i := 0; i < l.Len(); i++ {
		indices <- i
	}
	close(indices)

	workers := t.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > l.Len() {
		workers = l.Len()
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				encoded[idx], errs[idx] = l.GetSample(idx)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
	}

	images := make([]anyvec.Vector, len(encoded))
	labels := make([][]int, len(encoded))
	for i, enc := range encoded {
		images[i] = enc.Image
		labels[i] = enc.Classes
	}
	return &Batch{
		Images: anydiff.NewConst(l.Creator.Concat(images...)),
		Labels: labels,
		Count:  len(encoded),
	}, nil
}

// TotalCost computes the total CTC cost for the batch.
func (t *Trainer) TotalCost(b *Batch) anydiff.Res {
	out := t.Model.Apply(b.Images, b.Count)
	costs := anyctc.Cost(out, b.Labels)
	sum := anydiff.Sum(costs)
	if t.Average {
		scaler := sum.Output().Creator().MakeNumeric(1 / float64(b.Count))
		return anydiff.Scale(sum, scaler)
	}
	return sum
}

// Gradient back-propagates the batch's cost through the
// model parameters, recording the cost in t.LastCost along
// the way.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	cost := t.TotalCost(b.(*Batch))
	t.LastCost = anyvec.Sum(cost.Output())

	grad := anydiff.NewGrad(t.Params...)
	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, grad)
	return grad
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
