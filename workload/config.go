package workload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultThreads     = 4
	DefaultInitialKeys = 100000
	DefaultTotalOps    = 1000000
)

// OpMix is the weighted operation distribution of the workload.
type OpMix struct {
	Contains float64
	Add      float64
	Remove   float64
}

// DefaultMix is the 80/10/10 contains/add/remove split.
var DefaultMix = OpMix{Contains: 0.8, Add: 0.1, Remove: 0.1}

const mixTolerance = 1e-9

// ParseMix parses "contains,add,remove" weight triples such as
// "0.8,0.1,0.1". Weights must be non-negative and sum to 1.
func ParseMix(s string) (OpMix, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return OpMix{}, fmt.Errorf("mix %q: want three comma-separated weights", s)
	}
	weights := make([]float64, 3)
	for i, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return OpMix{}, fmt.Errorf("mix %q: %w", s, err)
		}
		if w < 0 {
			return OpMix{}, fmt.Errorf("mix %q: negative weight %v", s, w)
		}
		weights[i] = w
	}
	mix := OpMix{Contains: weights[0], Add: weights[1], Remove: weights[2]}
	if err := mix.validate(); err != nil {
		return OpMix{}, err
	}
	return mix, nil
}

func (m OpMix) validate() error {
	sum := m.Contains + m.Add + m.Remove
	if sum < 1-mixTolerance || sum > 1+mixTolerance {
		return fmt.Errorf("op mix weights sum to %v, want 1", sum)
	}
	return nil
}

// Range is an inclusive integer interval keys are drawn from.
type Range struct {
	Min, Max int
}

func (r Range) size() int {
	return r.Max - r.Min + 1
}

func (r Range) validate(name string) error {
	if r.Max < r.Min {
		return fmt.Errorf("%s range [%d, %d] is empty", name, r.Min, r.Max)
	}
	return nil
}

// Config tunes one benchmark run. All fields have CLI flags; there is no
// persisted configuration format.
type Config struct {
	Threads       int
	InitialKeys   int
	TotalOps      int
	ValueRange    Range
	PopulateRange Range
	Mix           OpMix
	// Seed fixes the workload RNG for reproducible runs; zero seeds from
	// the clock.
	Seed int64
}

func (c Config) Validate() error {
	if c.Threads < 1 {
		return errors.New("threads must be >= 1")
	}
	if c.InitialKeys < 0 {
		return errors.New("initial keys must be >= 0")
	}
	if c.TotalOps < 0 {
		return errors.New("total ops must be >= 0")
	}
	if err := c.ValueRange.validate("value"); err != nil {
		return err
	}
	if err := c.PopulateRange.validate("populate"); err != nil {
		return err
	}
	if c.InitialKeys > c.PopulateRange.size() {
		return fmt.Errorf("populate range [%d, %d] holds %d keys, cannot draw %d unique",
			c.PopulateRange.Min, c.PopulateRange.Max, c.PopulateRange.size(), c.InitialKeys)
	}
	return c.Mix.validate()
}
