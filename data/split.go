package data

import (
	"fmt"
	"math/rand"
)

// DefaultTrainFrac is the customary training fraction.
const DefaultTrainFrac = 0.9

// An InsufficientDataError indicates that a split was
// requested on a list too small to leave both sides
// non-empty.
type InsufficientDataError struct {
	Have int
	Need int
}

// Error returns a message with the sample counts.
func (i *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d samples, need at least %d",
		i.Have, i.Need)
}

// Split partitions a list into training and validation
// sets.
//
// If shuffle is set, the samples are permuted with a
// deterministic seeded shuffle first.
// The first floor(N*trainFrac) samples become the
// training set and the remainder the validation set, in
// that order, so no sample is dropped or duplicated.
//
// Split fails with an *InsufficientDataError when either
// side would be empty.
func Split(l *List, trainFrac float64, shuffle bool, seed int64) (training,
	validation *List, err error) {
	n := l.Len()
	trainCount := int(float64(n) * trainFrac)
	if trainCount < 1 || n-trainCount < 1 {
		return nil, nil, &InsufficientDataError{Have: n, Need: 2}
	}

	shuffled := l.Slice(0, n).(*List)
	if shuffle {
		gen := rand.New(rand.NewSource(seed))
		for i := 0; i < shuffled.Len(); i++ {
			j := i + gen.Intn(shuffled.Len()-i)
			shuffled.Swap(i, j)
		}
	}

	training = shuffled.Slice(0, trainCount).(*List)
	validation = shuffled.Slice(trainCount, n).(*List)
	return training, validation, nil
}
