// Package distance computes pairwise distances between aligned
// sequences and stores them in a symmetric, zero-diagonal matrix.
package distance

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/evolab/phylosel/bio"
)

// log is the global logging variable.
var log = logging.MustGetLogger("distance")

// Matrix is an immutable symmetric distance matrix with named rows.
type Matrix struct {
	names []string
	index map[string]int
	m     *mat.SymDense
}

// newMatrix allocates a zero matrix for the names.
func newMatrix(names []string) *Matrix {
	dm := &Matrix{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		m:     mat.NewSymDense(len(names), nil),
	}
	for i, name := range names {
		dm.index[name] = i
	}
	return dm
}

// NewMatrix creates a matrix from a square slice of values. The values
// should form a symmetric matrix with zero diagonal and non-negative
// entries.
func NewMatrix(names []string, values [][]float64) (*Matrix, error) {
	n := len(names)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", bio.ErrInput)
	}
	if len(values) != n {
		return nil, fmt.Errorf("%w: %d names for %d matrix rows", bio.ErrInput, n, len(values))
	}
	seen := make(map[string]bool, n)
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicated name %q", bio.ErrInput, name)
		}
		seen[name] = true
	}
	dm := newMatrix(names)
	for i := 0; i < n; i++ {
		if len(values[i]) != n {
			return nil, fmt.Errorf("%w: row %q has %d values, expecting %d", bio.ErrInput, names[i], len(values[i]), n)
		}
		if values[i][i] != 0 {
			return nil, fmt.Errorf("%w: non-zero diagonal for %q", bio.ErrInput, names[i])
		}
		for j := 0; j < i; j++ {
			d := values[i][j]
			if d != values[j][i] {
				return nil, fmt.Errorf("%w: d(%s,%s)=%v differs from d(%s,%s)=%v",
					bio.ErrInput, names[i], names[j], d, names[j], names[i], values[j][i])
			}
			if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, fmt.Errorf("%w: invalid distance d(%s,%s)=%v", bio.ErrInput, names[i], names[j], d)
			}
			dm.m.SetSym(i, j, d)
		}
	}
	return dm, nil
}

// Len returns the number of rows.
func (dm *Matrix) Len() int {
	return len(dm.names)
}

// Names returns a copy of the row names.
func (dm *Matrix) Names() []string {
	return append([]string(nil), dm.names...)
}

// Name returns the name of row i.
func (dm *Matrix) Name(i int) string {
	return dm.names[i]
}

// At returns the distance between rows i and j.
func (dm *Matrix) At(i, j int) float64 {
	return dm.m.At(i, j)
}

// Distance returns the distance between two named sequences.
func (dm *Matrix) Distance(a, b string) (float64, bool) {
	i, ok1 := dm.index[a]
	j, ok2 := dm.index[b]
	if !ok1 || !ok2 {
		return 0, false
	}
	return dm.m.At(i, j), true
}

// String returns the matrix in PHYLIP format.
func (dm *Matrix) String() string {
	var b strings.Builder
	dm.WritePhylip(&b)
	return b.String()
}

// WritePhylip writes the matrix in the square PHYLIP format.
func (dm *Matrix) WritePhylip(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", dm.Len())
	for i, name := range dm.names {
		bw.WriteString(name)
		for j := range dm.names {
			fmt.Fprintf(bw, " %.6f", dm.At(i, j))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadPhylip reads a square PHYLIP distance matrix. Names should not
// contain spaces.
func ReadPhylip(rd io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(bufio.ScanWords)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty matrix file", bio.ErrInput)
	}
	n, err := strconv.Atoi(scanner.Text())
	if err != nil || n < 1 {
		return nil, fmt.Errorf("%w: wrong number of taxa %q", bio.ErrInput, scanner.Text())
	}

	names := make([]string, n)
	values := make([][]float64, n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: expecting %d rows, got %d", bio.ErrInput, n, i)
		}
		names[i] = scanner.Text()
		values[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("%w: row %q is too short", bio.ErrInput, names[i])
			}
			values[i][j], err = strconv.ParseFloat(scanner.Text(), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %q: %v", bio.ErrInput, names[i], err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Debugf("Read %dx%d distance matrix", n, n)
	return NewMatrix(names, values)
}
