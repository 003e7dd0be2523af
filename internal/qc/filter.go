// Package qc applies the per-sample quality filter to a finished
// assembly: total length against an absolute floor and the fraction
// of unambiguous bases against a minimum. Failing the filter is a
// normal terminal outcome for a sample, not an error; the sample is
// excluded from aggregation and its siblings are untouched.
package qc

import (
	"fmt"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Result holds the measured assembly statistics and the thresholds
// they were judged against
type Result struct {
	// total assembled bases across all segments
	Length int

	// bases that are unambiguous (A, C, G or T)
	Unambiguous int

	MinLength      int
	MinUnambiguous float64
}

// UnambiguousFraction is the share of assembled bases called
// unambiguously; 0 for an empty assembly
func (r *Result) UnambiguousFraction() float64 {
	if r.Length == 0 {
		return 0
	}
	return float64(r.Unambiguous) / float64(r.Length)
}

// Pass reports whether the assembly clears both thresholds
func (r *Result) Pass() bool {
	return r.Length >= r.MinLength && r.UnambiguousFraction() >= r.MinUnambiguous
}

func (r *Result) String() string {
	return fmt.Sprintf("length=%d unambiguous=%.3f", r.Length, r.UnambiguousFraction())
}

// Evaluate reads the assembly fasta at path and measures it against
// the configured thresholds
func Evaluate(path string, minLength int, minUnambiguous float64) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open assembly %s: %w", path, err)
	}
	defer f.Close()

	template := linear.NewSeq("", nil, alphabet.DNA)
	sc := seqio.NewScanner(fasta.NewReader(f, template))

	result := &Result{
		MinLength:      minLength,
		MinUnambiguous: minUnambiguous,
	}
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		result.Length += s.Len()
		for _, l := range s.Seq {
			switch l {
			case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
				result.Unambiguous++
			}
		}
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("failed to read assembly %s: %w", path, err)
	}
	return result, nil
}
