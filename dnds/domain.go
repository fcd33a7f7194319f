package dnds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bitbucket.org/evolab/phylosel/bio"
)

// Domain is a named codon range [Start, End), zero based.
type Domain struct {
	Name  string
	Start int
	End   int
}

func (d Domain) String() string {
	return fmt.Sprintf("%s[%d,%d)", d.Name, d.Start, d.End)
}

// Check tests if the domain is a non-empty range within a sequence of
// n codons.
func (d Domain) Check(n int) error {
	if d.Start < 0 || d.End <= d.Start {
		return fmt.Errorf("%w: domain %v: empty or negative range", bio.ErrInput, d)
	}
	if d.End > n {
		return fmt.Errorf("%w: domain %v exceeds sequence length of %d codons", bio.ErrInput, d, n)
	}
	return nil
}

// TP53Domains are the functional domains of the human TP53 protein in
// codon coordinates.
var TP53Domains = []Domain{
	{"N-terminal", 0, 42},
	{"DNA-binding", 94, 289},
	{"Oligomerization", 323, 355},
	{"C-terminal", 363, 393},
}

var domainHeader = []string{"name", "start", "end"}

// ReadDomains reads a tab separated table with the columns name,
// start and end. Lines starting with # are ignored.
func ReadDomains(r io.Reader) ([]Domain, error) {
	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: domains header: %v", bio.ErrInput, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range domainHeader {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("%w: domains: expecting field %q", bio.ErrInput, h)
		}
	}

	var domains []Domain
	names := make(map[string]bool)
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("%w: domains: on row %d: %v", bio.ErrInput, ln, err)
		}

		d := Domain{Name: strings.TrimSpace(row[fields["name"]])}
		if d.Name == "" {
			return nil, fmt.Errorf("%w: domains: on row %d: empty name", bio.ErrInput, ln)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("%w: domains: on row %d: duplicate domain %q", bio.ErrInput, ln, d.Name)
		}
		names[d.Name] = true

		if d.Start, err = strconv.Atoi(strings.TrimSpace(row[fields["start"]])); err != nil {
			return nil, fmt.Errorf("%w: domains: on row %d: field \"start\": %v", bio.ErrInput, ln, err)
		}
		if d.End, err = strconv.Atoi(strings.TrimSpace(row[fields["end"]])); err != nil {
			return nil, fmt.Errorf("%w: domains: on row %d: field \"end\": %v", bio.ErrInput, ln, err)
		}
		if d.Start < 0 || d.End <= d.Start {
			return nil, fmt.Errorf("%w: domains: on row %d: invalid range [%d,%d)", bio.ErrInput, ln, d.Start, d.End)
		}
		domains = append(domains, d)
	}
	return domains, nil
}
