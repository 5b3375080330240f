// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sweep

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSequence is returned for empty, non-positive or malformed
// sequences.
var ErrInvalidSequence = errors.New("sweep: invalid sequence")

// Sequence is a list of positive integers.
//
// In YAML a Sequence is a list, a single integer, or a Range mapping.
type Sequence []int

// Range describes an inclusive arithmetic (Step) or geometric (Factor)
// progression from From to To.
type Range struct {
	From   int `yaml:"from"`
	To     int `yaml:"to"`
	Step   int `yaml:"step,omitempty"`
	Factor int `yaml:"factor,omitempty"`
}

// MaxSequenceLen bounds the number of values a Range may expand to.
const MaxSequenceLen = 1 << 16

// Values expands the range. Expansion never overflows int, and ranges
// longer than MaxSequenceLen are rejected.
func (r Range) Values() (Sequence, error) {
	switch {
	case r.From <= 0 || r.To < r.From:
		return nil, fmt.Errorf("%w: range %d..%d", ErrInvalidSequence, r.From, r.To)
	case (r.Step > 0) == (r.Factor > 0):
		return nil, fmt.Errorf("%w: range needs exactly one of step or factor", ErrInvalidSequence)
	case r.Step > 0:
		count := (r.To-r.From)/r.Step + 1
		if count > MaxSequenceLen {
			return nil, fmt.Errorf("%w: range %d..%d step %d has %d values (max %d)",
				ErrInvalidSequence, r.From, r.To, r.Step, count, MaxSequenceLen)
		}
		return lo.Times(count, func(i int) int { return r.From + i*r.Step }), nil
	case r.Factor < 2:
		return nil, fmt.Errorf("%w: factor %d", ErrInvalidSequence, r.Factor)
	}
	seq := Sequence{r.From}
	for v := r.From; v <= r.To/r.Factor; {
		v *= r.Factor
		seq = append(seq, v)
	}
	return seq, nil
}

// Linear returns from, from+step, ... up to and including to.
func Linear(from, to, step int) Sequence {
	seq, err := Range{From: from, To: to, Step: step}.Values()
	if err != nil {
		panic(err)
	}
	return seq
}

// Doubling returns from, 2*from, ... up to and including to.
func Doubling(from, to int) Sequence {
	seq, err := Range{From: from, To: to, Factor: 2}.Values()
	if err != nil {
		panic(err)
	}
	return seq
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Sequence) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var values []int
		if err := node.Decode(&values); err != nil {
			return err
		}
		*s = values
	case yaml.ScalarNode:
		var v int
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = Sequence{v}
	case yaml.MappingNode:
		var r Range
		if err := node.Decode(&r); err != nil {
			return err
		}
		values, err := r.Values()
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = values
	default:
		return fmt.Errorf("%w: line %d: expected list, integer or range", ErrInvalidSequence, node.Line)
	}
	return nil
}

// Sorted returns the values in ascending order without duplicates.
func (s Sequence) Sorted() (Sequence, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSequence)
	}
	for _, v := range s {
		if v <= 0 {
			return nil, fmt.Errorf("%w: %d is not positive", ErrInvalidSequence, v)
		}
	}
	sorted := slices.Clone(s)
	slices.Sort(sorted)
	return lo.Uniq(sorted), nil
}
