package tree

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats stores summary statistics of a tree.
type Stats struct {
	Tips     int     `json:"tips"`
	Internal int     `json:"internalNodes"`
	Total    float64 `json:"totalBranchLength"`
	Mean     float64 `json:"meanBranchLength"`
	SD       float64 `json:"sdBranchLength"`
	Min      float64 `json:"minBranchLength"`
	Max      float64 `json:"maxBranchLength"`
}

// BranchLengths returns the branch lengths of all non-root nodes in
// preorder.
func (tree *Tree) BranchLengths() []float64 {
	res := make([]float64, 0, tree.NNodes())
	for node := range tree.Walker(nil) {
		if !node.IsRoot() {
			res = append(res, node.BranchLength)
		}
	}
	return res
}

// Stats computes summary statistics for the tree branches.
func (tree *Tree) Stats() Stats {
	s := Stats{
		Tips:     tree.NLeaves(),
		Internal: tree.NInternal(),
	}
	bl := tree.BranchLengths()
	if len(bl) == 0 {
		return s
	}
	s.Total = floats.Sum(bl)
	s.Min = floats.Min(bl)
	s.Max = floats.Max(bl)
	if len(bl) > 1 {
		s.Mean, s.SD = stat.MeanStdDev(bl, nil)
	} else {
		s.Mean = bl[0]
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("tips=%d, internal=%d, total=%f, mean=%f, sd=%f, min=%f, max=%f",
		s.Tips, s.Internal, s.Total, s.Mean, s.SD, s.Min, s.Max)
}
