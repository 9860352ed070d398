// Package vocab maps captcha characters to the integer
// class indices used by the network's output layer.
package vocab

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Codec
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCodec)
}

// An UnknownCharError indicates that a label contains a
// character outside a codec's alphabet.
type UnknownCharError struct {
	Char rune
}

// Error returns a message naming the character.
func (u *UnknownCharError) Error() string {
	return fmt.Sprintf("unknown character: %q", u.Char)
}

// A Codec is a fixed bidirectional mapping between
// characters and class indices.
//
// Class indices range over [0, NumClasses()).
// The index NumClasses() is reserved for the CTC blank
// symbol and is never produced by Encode.
//
// A Codec must be built once from the full training label
// set and then reused, identically, at inference time.
// Rebuilding it from a different sample set produces a
// different mapping and makes saved parameters useless.
type Codec struct {
	alphabet []rune
	indices  map[rune]int
	maxLen   int
}

// DeserializeCodec deserializes a Codec.
func DeserializeCodec(d []byte) (*Codec, error) {
	var alphabet string
	var maxLen serializer.Int
	if err := serializer.DeserializeAny(d, &alphabet, &maxLen); err != nil {
		return nil, essentials.AddCtx("deserialize Codec", err)
	}
	return newCodec([]rune(alphabet), int(maxLen)), nil
}

// NewCodec builds a codec from the full set of training
// labels.
//
// The alphabet is the set of distinct characters across
// all labels, sorted lexicographically so that the same
// label set always yields the same mapping.
// The longest label determines MaxLabelLen.
func NewCodec(labels []string) *Codec {
	seen := map[rune]bool{}
	var alphabet []rune
	var maxLen int
	for _, label := range labels {
		runes := []rune(label)
		if len(runes) > maxLen {
			maxLen = len(runes)
		}
		for _, ch := range runes {
			if !seen[ch] {
				seen[ch] = true
				alphabet = append(alphabet, ch)
			}
		}
	}
	sort.Slice(alphabet, func(i, j int) bool {
		return alphabet[i] < alphabet[j]
	})
	return newCodec(alphabet, maxLen)
}

func newCodec(alphabet []rune, maxLen int) *Codec {
	indices := map[rune]int{}
	for i, ch := range alphabet {
		indices[ch] = i
	}
	return &Codec{alphabet: alphabet, indices: indices, maxLen: maxLen}
}

// NumClasses returns the alphabet size.
// The network emits NumClasses()+1 values per timestep,
// the extra one being the blank.
func (c *Codec) NumClasses() int {
	return len(c.alphabet)
}

// Blank returns the class index of the CTC blank symbol.
func (c *Codec) Blank() int {
	return len(c.alphabet)
}

// MaxLabelLen returns the length of the longest label
// observed when the codec was built.
func (c *Codec) MaxLabelLen() int {
	return c.maxLen
}

// Alphabet returns the characters in index order.
func (c *Codec) Alphabet() string {
	return string(c.alphabet)
}

// Encode maps a label to a sequence of class indices.
//
// If the label contains a character outside the alphabet,
// Encode fails with an *UnknownCharError rather than
// dropping or substituting the character.
func (c *Codec) Encode(label string) ([]int, error) {
	res := make([]int, 0, len(label))
	for _, ch := range label {
		idx, ok := c.indices[ch]
		if !ok {
			return nil, &UnknownCharError{Char: ch}
		}
		res = append(res, idx)
	}
	return res, nil
}

// Decode maps class indices back to text.
// Blank, negative, and out-of-range indices are dropped.
func (c *Codec) Decode(classes []int) string {
	var sb strings.Builder
	for _, x := range classes {
		if x >= 0 && x < len(c.alphabet) {
			sb.WriteRune(c.alphabet[x])
		}
	}
	return sb.String()
}

// SerializerType returns the unique ID used to serialize
// a Codec with the serializer package.
func (c *Codec) SerializerType() string {
	return "github.com/puriyaj/captchanet/vocab.Codec"
}

// Serialize serializes the Codec.
func (c *Codec) Serialize() ([]byte, error) {
	return serializer.SerializeAny(string(c.alphabet), serializer.Int(c.maxLen))
}
