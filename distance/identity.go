package distance

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"bitbucket.org/evolab/phylosel/bio"
)

// Model is a distance model.
type Model int

const (
	// Identity is the proportion of differing positions among the
	// positions where neither sequence has a gap.
	Identity Model = iota
)

// ParseModel returns a model from its name.
func ParseModel(name string) (Model, error) {
	switch name {
	case "identity":
		return Identity, nil
	}
	return Identity, fmt.Errorf("%w: unknown distance model: %s", bio.ErrInput, name)
}

func (m Model) String() string {
	switch m {
	case Identity:
		return "identity"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// upper converts an ASCII lower case letter to upper case.
func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// IdentityDistance returns the identity distance between two aligned
// sequences and the number of positions compared. Positions with a gap
// in either sequence are skipped. If no position is comparable an
// error wrapping bio.ErrUndefined is returned.
func IdentityDistance(a, b bio.Sequence) (d float64, compared int, err error) {
	if a.Len() != b.Len() {
		return 0, 0, fmt.Errorf("%w: sequences %q (length %d) and %q (length %d) are not aligned",
			bio.ErrInput, a.Name, a.Len(), b.Name, b.Len())
	}
	diff := 0
	for i := 0; i < a.Len(); i++ {
		ca, cb := a.Sequence[i], b.Sequence[i]
		if bio.IsGap(ca) || bio.IsGap(cb) {
			continue
		}
		compared++
		if upper(ca) != upper(cb) {
			diff++
		}
	}
	if compared == 0 {
		return 0, 0, fmt.Errorf("%w: no comparable positions between %q and %q",
			bio.ErrUndefined, a.Name, b.Name)
	}
	return float64(diff) / float64(compared), compared, nil
}

// Compute computes the distance matrix for aligned sequences. Every
// unordered pair is computed once; the pairs are distributed among
// nThreads goroutines (all available CPUs if nThreads < 1). The
// running time is O(n^2 L) for n sequences of length L.
func Compute(seqs bio.Sequences, model Model, nThreads int) (*Matrix, error) {
	if len(seqs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 sequences are required, got %d", bio.ErrInput, len(seqs))
	}
	if err := seqs.Validate(); err != nil {
		return nil, err
	}
	l, err := seqs.Aligned()
	if err != nil {
		return nil, err
	}
	if l < 1 {
		return nil, fmt.Errorf("%w: zero length alignment", bio.ErrInput)
	}
	if model != Identity {
		return nil, fmt.Errorf("%w: unsupported distance model %v", bio.ErrInput, model)
	}
	if nThreads < 1 {
		nThreads = runtime.GOMAXPROCS(0)
	}

	type pair struct{ i, j int }
	pairs := make([]pair, 0, len(seqs)*(len(seqs)-1)/2)
	for i := range seqs {
		for j := i + 1; j < len(seqs); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	values := make([]float64, len(pairs))
	errs := make([]error, len(pairs))

	var g errgroup.Group
	g.SetLimit(nThreads)
	for k, p := range pairs {
		g.Go(func() error {
			values[k], _, errs[k] = IdentityDistance(seqs[p.i], seqs[p.j])
			return nil
		})
	}
	g.Wait()

	dm := newMatrix(seqs.Names())
	for k, p := range pairs {
		// report the first failing pair in the input order
		if errs[k] != nil {
			return nil, errs[k]
		}
		dm.m.SetSym(p.i, p.j, values[k])
	}
	log.Debugf("Computed %s distances for %d sequences of length %d", model, len(seqs), l)
	return dm, nil
}
