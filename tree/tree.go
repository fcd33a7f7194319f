// Package tree implements phylogenetic trees: clades with ordered
// children and branch lengths, newick input/output and derived tree
// statistics.
package tree

import (
	"fmt"
	"sort"
	"strings"
)

// Tree is a rooted tree. Tree embeds its root node.
type Tree struct {
	*Node
	nNodes int
	nodes  []*Node
}

// New creates a tree from a root node. Node IDs are reassigned in
// preorder (root is 0); leaf IDs are kept.
func New(root *Node) *Tree {
	tree := &Tree{Node: root}
	id := 0
	var number func(node *Node)
	number = func(node *Node) {
		node.ID = id
		id++
		for _, child := range node.childNodes {
			number(child)
		}
	}
	number(root)
	return tree
}

func (tree *Tree) NNodes() int {
	if tree.nNodes == 0 {
		tree.nNodes = tree.NSubNodes()
	}
	return tree.nNodes
}

// Nodes returns all the nodes indexed by ID.
func (tree *Tree) Nodes() []*Node {
	if tree.nodes == nil {
		tree.nodes = make([]*Node, tree.NNodes())
		for node := range tree.Walker(nil) {
			tree.nodes[node.ID] = node
		}
	}
	return tree.nodes
}

func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return node.IsTerminal()
	})
}

func (tree *Tree) NonTerminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return !node.IsTerminal()
	})
}

func (tree *Tree) NLeaves() (i int) {
	for range tree.Terminals() {
		i++
	}
	return
}

func (tree *Tree) NInternal() (i int) {
	for range tree.NonTerminals() {
		i++
	}
	return
}

// Leaves returns the leaves ordered by leaf ID.
func (tree *Tree) Leaves() []*Node {
	leaves := make([]*Node, 0, tree.NNodes())
	for node := range tree.Terminals() {
		leaves = append(leaves, node)
	}
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].LeafID < leaves[j].LeafID
	})
	return leaves
}

// Leaf returns the leaf with the given name or nil.
func (tree *Tree) Leaf(name string) *Node {
	for node := range tree.Terminals() {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// Walker returns a channel with all nodes (in preorder) for which
// filter returns true. nil filter accepts all nodes.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, tree.NNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// TotalBranchLength returns the sum of all branch lengths, the root
// branch excluded.
func (tree *Tree) TotalBranchLength() (l float64) {
	for node := range tree.Walker(nil) {
		if !node.IsRoot() {
			l += node.BranchLength
		}
	}
	return
}

// RootDistances returns path length from the root to every leaf.
func (tree *Tree) RootDistances() map[string]float64 {
	res := make(map[string]float64)
	for node := range tree.Terminals() {
		res[node.Name] = node.Depth()
	}
	return res
}

// Patristic returns the path length between two nodes of the same
// tree.
func Patristic(a, b *Node) float64 {
	anc := make(map[*Node]float64)
	l := 0.0
	for node := a; node != nil; node = node.Parent {
		anc[node] = l
		l += node.BranchLength
	}
	l = 0
	for node := b; node != nil; node = node.Parent {
		if la, ok := anc[node]; ok {
			return la + l
		}
		l += node.BranchLength
	}
	panic("nodes belong to different trees")
}

// Node is a clade. Leaves have names, internal nodes have children.
// BranchLength is the length of the branch to the parent.
type Node struct {
	Name         string
	BranchLength float64
	Parent       *Node
	childNodes   []*Node
	ID           int
	LeafID       int
}

func NewNode(parent *Node, nodeID int) (node *Node) {
	node = &Node{Parent: parent, ID: nodeID}
	return
}

// NewLeaf creates a named terminal node.
func NewLeaf(name string, leafID int) *Node {
	return &Node{Name: name, LeafID: leafID}
}

func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Depth returns the path length from the root to the node.
func (node *Node) Depth() (l float64) {
	for ; node.Parent != nil; node = node.Parent {
		l += node.BranchLength
	}
	return
}

// String returns the subtree in newick format.
func (node *Node) String() string {
	var b strings.Builder
	node.writeNewick(&b)
	if node.IsRoot() {
		b.WriteByte(';')
	}
	return b.String()
}

func (node *Node) writeNewick(b *strings.Builder) {
	if !node.IsTerminal() {
		b.WriteByte('(')
		for i, child := range node.childNodes {
			if i > 0 {
				b.WriteByte(',')
			}
			child.writeNewick(b)
		}
		b.WriteByte(')')
	}
	b.WriteString(quoteName(node.Name))
	fmt.Fprintf(b, ":%0.6f", node.BranchLength)
}

func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("ID=%v, BranchLength=%v", node.ID, node.BranchLength)
	if node.IsTerminal() {
		s += fmt.Sprintf(", LeafID=%v", node.LeafID)
	}
	s += ">"
	return
}

// FullString returns an indented description of the subtree.
func (node *Node) FullString() string {
	return strings.TrimSpace(node.prefixString(""))
}

func (node *Node) prefixString(prefix string) (s string) {
	s = prefix + node.LongString() + "\n"
	for _, node := range node.childNodes {
		s += node.prefixString(prefix + "    ")
	}
	return
}

// Walk sends the subtree nodes accepted by filter to the channel.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, node := range node.childNodes {
		node.Walk(ch, filter)
	}
}

func (node *Node) NSubNodes() (size int) {
	for _, node := range node.childNodes {
		size += node.NSubNodes()
	}
	return size + 1
}

func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}
