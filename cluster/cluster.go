// Package cluster builds trees from distance matrices using UPGMA and
// Neighbor-Joining.
//
// Both algorithms keep clusters in an arena: n leaf records followed
// by one record per merge, each with an active flag. A step merges one
// pair of active clusters. Ties are broken by cluster keys (the
// smallest leaf name in a cluster), so the result does not depend on
// the input order. A build takes O(n^3) time and O(n^2) memory.
package cluster

import (
	"fmt"
	"strings"

	"github.com/op/go-logging"

	"bitbucket.org/evolab/phylosel/bio"
	"bitbucket.org/evolab/phylosel/tree"
)

var log = logging.MustGetLogger("cluster")

// DistanceMatrix is a symmetric matrix with zero diagonal and named
// rows. *distance.Matrix implements it.
type DistanceMatrix interface {
	Len() int
	Name(i int) string
	At(i, j int) float64
}

// Method is a tree building algorithm.
type Method int

const (
	// MethodUPGMA builds a rooted ultrametric tree.
	MethodUPGMA Method = iota
	// MethodNJ builds a Neighbor-Joining tree, rooted at the last join.
	MethodNJ
)

// ParseMethod returns a method by name.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "upgma":
		return MethodUPGMA, nil
	case "nj":
		return MethodNJ, nil
	}
	return 0, fmt.Errorf("%w: unknown tree method %q", bio.ErrInput, name)
}

func (m Method) String() string {
	switch m {
	case MethodUPGMA:
		return "upgma"
	case MethodNJ:
		return "nj"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Merge describes one step of a build. Left and Right are arena
// indices of the merged clusters, Node is the index of the new one.
// LeftLength and RightLength are the computed branch lengths before
// clamping.
type Merge struct {
	Step        int
	Left, Right int
	Node        int
	Distance    float64
	Height      float64 // UPGMA only
	Q           float64 // NJ only
	LeftLength  float64
	RightLength float64
}

func (m Merge) String() string {
	return fmt.Sprintf("<step=%d, %d+%d->%d, d=%f, lengths=%f/%f>",
		m.Step, m.Left, m.Right, m.Node, m.Distance, m.LeftLength, m.RightLength)
}

type cluster struct {
	node   *tree.Node
	key    string
	size   int
	height float64
	active bool
}

// Builder builds a tree step by step.
type Builder struct {
	method   Method
	clusters []cluster
	// d is the arena distance matrix, row major, stride cap(clusters).
	d       []float64
	stride  int
	nActive int
	merges  []Merge
	root    *tree.Node
	tree    *tree.Tree
}

func newBuilder(dm DistanceMatrix, method Method, min int) (*Builder, error) {
	n := dm.Len()
	if n < min {
		return nil, fmt.Errorf("%w: %v requires at least %d sequences, got %d", bio.ErrInput, method, min, n)
	}
	stride := 2*n - 1
	b := &Builder{
		method:   method,
		clusters: make([]cluster, 0, stride),
		d:        make([]float64, stride*stride),
		stride:   stride,
		nActive:  n,
	}
	names := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		name := dm.Name(i)
		if names[name] {
			return nil, fmt.Errorf("%w: duplicate name %q", bio.ErrInput, name)
		}
		names[name] = true
		b.clusters = append(b.clusters, cluster{
			node:   tree.NewLeaf(name, i),
			key:    name,
			size:   1,
			active: true,
		})
		for j := 0; j < i; j++ {
			b.setDist(i, j, dm.At(i, j))
		}
	}
	return b, nil
}

// NewUPGMA creates a UPGMA builder. At least 2 sequences are required.
func NewUPGMA(dm DistanceMatrix) (*Builder, error) {
	return newBuilder(dm, MethodUPGMA, 2)
}

// NewNJ creates a Neighbor-Joining builder. At least 3 sequences are
// required.
func NewNJ(dm DistanceMatrix) (*Builder, error) {
	return newBuilder(dm, MethodNJ, 3)
}

func (b *Builder) dist(i, j int) float64 {
	return b.d[i*b.stride+j]
}

func (b *Builder) setDist(i, j int, v float64) {
	b.d[i*b.stride+j] = v
	b.d[j*b.stride+i] = v
}

// pairLess tests if pair (i1, j1) precedes pair (i2, j2) in the tie
// break order.
func (b *Builder) pairLess(i1, j1, i2, j2 int) bool {
	a1, z1 := b.clusters[i1].key, b.clusters[j1].key
	if a1 > z1 {
		a1, z1 = z1, a1
	}
	a2, z2 := b.clusters[i2].key, b.clusters[j2].key
	if a2 > z2 {
		a2, z2 = z2, a2
	}
	if a1 != a2 {
		return a1 < a2
	}
	return z1 < z2
}

// active returns the arena indices of active clusters.
func (b *Builder) active() []int {
	idx := make([]int, 0, b.nActive)
	for i := range b.clusters {
		if b.clusters[i].active {
			idx = append(idx, i)
		}
	}
	return idx
}

// join creates a new cluster from i and j with the given branch
// lengths (negative lengths are clamped).
func (b *Builder) join(i, j int, li, lj, height float64) int {
	ci, cj := &b.clusters[i], &b.clusters[j]
	if cj.key < ci.key {
		ci, cj = cj, ci
		li, lj = lj, li
	}
	node := tree.NewNode(nil, 0)
	for _, c := range []struct {
		*cluster
		l float64
	}{{ci, li}, {cj, lj}} {
		if c.l < 0 {
			log.Warningf("Negative branch length %f for cluster %q clamped to zero", c.l, c.key)
			c.l = 0
		}
		c.node.BranchLength = c.l
		node.AddChild(c.node)
		c.active = false
	}
	b.clusters = append(b.clusters, cluster{
		node:   node,
		key:    ci.key,
		size:   ci.size + cj.size,
		height: height,
		active: true,
	})
	b.nActive--
	return len(b.clusters) - 1
}

// Step performs a single merge. ok is false when the tree is
// complete.
func (b *Builder) Step() (m Merge, ok bool) {
	if b.nActive < 2 {
		return Merge{}, false
	}
	switch b.method {
	case MethodNJ:
		m = b.stepNJ()
	default:
		m = b.stepUPGMA()
	}
	m.Step = len(b.merges)
	b.merges = append(b.merges, m)
	log.Debug(m)
	if b.nActive == 1 {
		b.root = b.clusters[m.Node].node
	}
	return m, true
}

// stepUPGMA merges the closest pair at half their distance. The
// distance to the new cluster is the size weighted mean.
func (b *Builder) stepUPGMA() Merge {
	act := b.active()
	bi, bj := -1, -1
	for x, i := range act {
		for _, j := range act[x+1:] {
			if bi < 0 || b.dist(i, j) < b.dist(bi, bj) ||
				(b.dist(i, j) == b.dist(bi, bj) && b.pairLess(i, j, bi, bj)) {
				bi, bj = i, j
			}
		}
	}
	d := b.dist(bi, bj)
	h := d / 2
	m := Merge{
		Left:        bi,
		Right:       bj,
		Distance:    d,
		Height:      h,
		LeftLength:  h - b.clusters[bi].height,
		RightLength: h - b.clusters[bj].height,
	}
	m.Node = b.join(bi, bj, m.LeftLength, m.RightLength, h)
	si, sj := float64(b.clusters[bi].size), float64(b.clusters[bj].size)
	for _, k := range act {
		if k == bi || k == bj {
			continue
		}
		b.setDist(m.Node, k, (si*b.dist(bi, k)+sj*b.dist(bj, k))/(si+sj))
	}
	return m
}

// stepNJ joins the pair minimizing Q(i,j) = (n-2)d(i,j) - r_i - r_j.
// The last two clusters are joined under the root at half their
// distance each.
func (b *Builder) stepNJ() Merge {
	act := b.active()
	n := len(act)
	if n == 2 {
		i, j := act[0], act[1]
		d := b.dist(i, j)
		m := Merge{Left: i, Right: j, Distance: d, LeftLength: d / 2, RightLength: d / 2}
		m.Node = b.join(i, j, m.LeftLength, m.RightLength, 0)
		return m
	}

	r := make(map[int]float64, n)
	for _, i := range act {
		for _, k := range act {
			if k != i {
				r[i] += b.dist(i, k)
			}
		}
	}

	nf := float64(n - 2)
	bi, bj := -1, -1
	bq := 0.0
	for x, i := range act {
		for _, j := range act[x+1:] {
			q := nf*b.dist(i, j) - r[i] - r[j]
			if bi < 0 || q < bq || (q == bq && b.pairLess(i, j, bi, bj)) {
				bi, bj, bq = i, j, q
			}
		}
	}

	d := b.dist(bi, bj)
	li := d/2 + (r[bi]-r[bj])/(2*nf)
	m := Merge{
		Left:        bi,
		Right:       bj,
		Distance:    d,
		Q:           bq,
		LeftLength:  li,
		RightLength: d - li,
	}
	m.Node = b.join(bi, bj, m.LeftLength, m.RightLength, 0)
	for _, k := range act {
		if k == bi || k == bj {
			continue
		}
		b.setDist(m.Node, k, (b.dist(bi, k)+b.dist(bj, k)-d)/2)
	}
	return m
}

// Merges returns the steps performed so far.
func (b *Builder) Merges() []Merge {
	return b.merges
}

// Tree completes the build and returns the tree.
func (b *Builder) Tree() *tree.Tree {
	if b.tree != nil {
		return b.tree
	}
	for {
		if _, ok := b.Step(); !ok {
			break
		}
	}
	b.tree = tree.New(b.root)
	log.Infof("Built %v tree with %d leaves", b.method, len(b.clusters)/2+1)
	return b.tree
}

// UPGMA builds a rooted ultrametric tree.
func UPGMA(dm DistanceMatrix) (*tree.Tree, error) {
	b, err := NewUPGMA(dm)
	if err != nil {
		return nil, err
	}
	return b.Tree(), nil
}

// NJ builds a Neighbor-Joining tree. The root is a synthetic node
// joining the last two clusters, each at half of their distance.
func NJ(dm DistanceMatrix) (*tree.Tree, error) {
	b, err := NewNJ(dm)
	if err != nil {
		return nil, err
	}
	return b.Tree(), nil
}

// Build builds a tree using the method.
func Build(dm DistanceMatrix, method Method) (*tree.Tree, error) {
	switch method {
	case MethodUPGMA:
		return UPGMA(dm)
	case MethodNJ:
		return NJ(dm)
	}
	return nil, fmt.Errorf("%w: unknown tree method %v", bio.ErrInput, method)
}
