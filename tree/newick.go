package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"bitbucket.org/evolab/phylosel/bio"
)

// Mode is the newick parser state.
type Mode int

const (
	NORMAL Mode = iota
	LENGTH
)

// IsSpecial tests if a rune is a newick punctuation character.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// quoteName quotes a label if it contains newick punctuation, quotes
// or blanks.
func quoteName(name string) string {
	if !strings.ContainsFunc(name, func(r rune) bool {
		return IsSpecial(r) || unicode.IsSpace(r) || r == '\'' || r == '[' || r == ']'
	}) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// unquoteName reverses quoteName.
func unquoteName(token string) string {
	if len(token) >= 2 && token[0] == '\'' && token[len(token)-1] == '\'' {
		return strings.ReplaceAll(token[1:len(token)-1], "''", "'")
	}
	return token
}

// NewickSplit is a bufio.SplitFunc returning newick tokens:
// punctuation, quoted labels and words.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) <= start {
		return len(data), nil, nil
	}

	// Quoted label, '' is an escaped quote.
	if start < len(data) && data[start] == '\'' {
		for i := start + 1; i < len(data); i++ {
			if data[i] != '\'' {
				continue
			}
			if i+1 < len(data) && data[i+1] == '\'' {
				i++
				continue
			}
			if i+1 == len(data) && !atEOF {
				// the next byte may be an escaped quote
				return start, nil, nil
			}
			return i + 1, data[start : i+1], nil
		}
		if atEOF {
			return 0, nil, fmt.Errorf("%w: unterminated quoted label", bio.ErrInput)
		}
		return start, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return start, nil, nil
}

// ParseNewick parses a tree in newick format. Node IDs are assigned
// in preorder, leaf IDs in the order of appearance.
func ParseNewick(rd io.Reader) (tree *Tree, err error) {
	scanner := bufio.NewScanner(rd)

	scanner.Split(NewickSplit)

	nodeID := 0

	node := NewNode(nil, nodeID)
	tree = &Tree{Node: node}
	nodeID++

	mode := NORMAL

	for scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			subNode := NewNode(nil, nodeID)
			nodeID++
			node.AddChild(subNode)
			node = subNode

		case ",":
			if node.Parent == nil {
				return nil, fmt.Errorf("%w: top level comma mismatch", bio.ErrInput)
			}
			subNode := NewNode(nil, nodeID)
			nodeID++

			node.Parent.AddChild(subNode)
			node = subNode

		case ")":
			if node.Parent == nil {
				return nil, fmt.Errorf("%w: brackets mismatch", bio.ErrInput)
			}
			node = node.Parent
		case ":":
			mode = LENGTH
		case ";":
			if node.Parent != nil {
				return nil, fmt.Errorf("%w: brackets mismatch", bio.ErrInput)
			}
			numberLeaves(tree)
			return
		default:
			switch mode {
			case LENGTH:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: branch length: %v", bio.ErrInput, err)
				}
				node.BranchLength = l
				mode = NORMAL
			default:
				node.Name = unquoteName(text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: newick tree should end with ';'", bio.ErrInput)
}

// numberLeaves assigns leaf IDs in preorder.
func numberLeaves(tree *Tree) {
	i := 0
	for node := range tree.Terminals() {
		node.LeafID = i
		i++
	}
}
