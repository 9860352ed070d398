package train

import (
	"math"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	"github.com/puriyaj/captchanet/data"
)

// A Loop runs epochs of SGD over the training set,
// measuring the validation cost after each epoch and
// stopping early when it stops improving.
type Loop struct {
	Trainer    *Trainer
	Training   *data.List
	Validation *data.List

	BatchSize int
	Rate      float64

	// MaxEpochs bounds the number of epochs.
	// If it is 0, training runs until early stopping or
	// the stop channel fires.
	MaxEpochs int

	// Patience is the number of consecutive epochs the
	// validation cost may fail to improve before training
	// stops.
	// If it is 0, early stopping is disabled.
	Patience int

	// RestoreBest restores the parameters from the epoch
	// with the lowest validation cost once training stops.
	RestoreBest bool

	// StatusFunc, if non-nil, is called after every epoch
	// with the final training batch cost and the average
	// per-sample validation cost.
	StatusFunc func(epoch int, trainCost, validCost float64)
}

// Run trains until MaxEpochs, early stopping, or the stop
// channel fires.
//
// Dropout is enabled for the duration of training and
// disabled again before Run returns, so the model is
// always left in inference mode.
// Parameter updates happen only on this goroutine.
func (l *Loop) Run(stopChan <-chan struct{}) error {
	l.Trainer.Model.SetDropout(true)
	defer l.Trainer.Model.SetDropout(false)

	sgd := &anysgd.SGD{
		Fetcher:     l.Trainer,
		Gradienter:  l.Trainer,
		Transformer: &anysgd.Adam{},
		Samples:     l.Training,
		Rater:       anysgd.ConstRater(l.Rate),
		BatchSize:   l.BatchSize,
	}

	batchSize := l.BatchSize
	if batchSize == 0 || batchSize > l.Training.Len() {
		batchSize = l.Training.Len()
	}
	batchesPerEpoch := (l.Training.Len() + batchSize - 1) / batchSize

	bestCost := math.Inf(1)
	var bestParams []anyvec.Vector
	var badEpochs int

	for epoch := 0; l.MaxEpochs == 0 || epoch < l.MaxEpochs; epoch++ {
		select {
		case <-stopChan:
			l.restore(bestParams)
			return nil
		default:
		}

		// The stop channel is closed synchronously inside
		// StatusFunc so the SGD loop observes the epoch
		// boundary on its very next done check.
		var batches int
		var once sync.Once
		epochStop := make(chan struct{})
		sgd.StatusFunc = func(b anysgd.Batch) {
			batches++
			if batches >= batchesPerEpoch {
				once.Do(func() {
					close(epochStop)
				})
				return
			}
			select {
			case <-stopChan:
				once.Do(func() {
					close(epochStop)
				})
			default:
			}
		}
		if err := sgd.Run(epochStop); err != nil {
			return essentials.AddCtx("train epoch", err)
		}

		validCost, err := l.validationCost()
		if err != nil {
			return essentials.AddCtx("validate epoch", err)
		}
		if l.StatusFunc != nil {
			l.StatusFunc(epoch, numericFloat(l.Trainer.LastCost), validCost)
		}

		if validCost < bestCost {
			bestCost = validCost
			badEpochs = 0
			if l.RestoreBest {
				bestParams = snapshot(l.Trainer.Params)
			}
		} else {
			badEpochs++
			if l.Patience > 0 && badEpochs >= l.Patience {
				break
			}
		}
	}

	l.restore(bestParams)
	return nil
}

// validationCost measures the average per-sample cost on
// the validation set with dropout disabled.
func (l *Loop) validationCost() (float64, error) {
	l.Trainer.Model.SetDropout(false)
	defer l.Trainer.Model.SetDropout(true)

	chunkSize := l.BatchSize
	if chunkSize == 0 {
		chunkSize = l.Validation.Len()
	}

	average := l.Trainer.Average
	l.Trainer.Average = false
	defer func() {
		l.Trainer.Average = average
	}()

	var total float64
	for start := 0; start < l.Validation.Len(); start += chunkSize {
		end := start + chunkSize
		if end > l.Validation.Len() {
			end = l.Validation.Len()
		}
		batch, err := l.Trainer.Fetch(l.Validation.Slice(start, end))
		if err != nil {
			return 0, err
		}
		cost := l.Trainer.TotalCost(batch.(*Batch))
		total += numericFloat(anyvec.Sum(cost.Output()))
	}
	return total / float64(l.Validation.Len()), nil
}

func (l *Loop) restore(params []anyvec.Vector) {
	if !l.RestoreBest || params == nil {
		return
	}
	for i, p := range l.Trainer.Params {
		p.Vector.Set(params[i])
	}
}

func snapshot(params []*anydiff.Var) []anyvec.Vector {
	res := make([]anyvec.Vector, len(params))
	for i, p := range params {
		res[i] = p.Vector.Copy()
	}
	return res
}
