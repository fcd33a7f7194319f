// Package dnds classifies codon substitutions between pairs of coding
// sequences and estimates dN, dS and their ratio (Nei-Gojobori
// counting, sites are counted on the reference sequence).
package dnds

import (
	"fmt"

	"github.com/op/go-logging"

	"bitbucket.org/evolab/phylosel/bio"
	"bitbucket.org/evolab/phylosel/codon"
)

var log = logging.MustGetLogger("dnds")

// Substitutions holds the observed synonymous (Sd) and
// non-synonymous (Nd) codon differences.
type Substitutions struct {
	Sd int `json:"sd"`
	Nd int `json:"nd"`
}

// Result is a dN/dS estimate for a pair of sequences over a codon
// range [Start, End).
type Result struct {
	Ref    string `json:"ref"`
	Alt    string `json:"alt"`
	Domain string `json:"domain,omitempty"`
	Start  int    `json:"start"`
	End    int    `json:"end"`

	codon.SiteCount
	Substitutions

	DN    Estimate `json:"dN"`
	DS    Estimate `json:"dS"`
	Ratio Estimate `json:"ratio"`

	// Compared is the number of codon pairs used, Skipped the number
	// of pairs with a gap, stop or ambiguous codon.
	Compared int `json:"compared"`
	Skipped  int `json:"skipped"`

	Err string `json:"error,omitempty"`
}

func (r *Result) String() string {
	s := fmt.Sprintf("%s/%s", r.Ref, r.Alt)
	if r.Domain != "" {
		s += " " + r.Domain
	}
	if r.Err != "" {
		return s + ": " + r.Err
	}
	return fmt.Sprintf("%s [%d,%d): S=%f, N=%f, sd=%d, nd=%d, dN=%v, dS=%v, dN/dS=%v",
		s, r.Start, r.End, r.S, r.N, r.Sd, r.Nd, r.DN, r.DS, r.Ratio)
}

// Classifier computes dN/dS for a genetic code.
type Classifier struct {
	GCode *bio.GeneticCode
	sites *codon.SiteTable
}

// New creates a classifier for a genetic code.
func New(gcode *bio.GeneticCode) *Classifier {
	return &Classifier{
		GCode: gcode,
		sites: codon.NewSiteTable(gcode),
	}
}

// Classify estimates dN/dS over the whole length of two coding
// sequences.
func (c *Classifier) Classify(ref, alt bio.Sequence) (*Result, error) {
	rc, ac, err := codonPairs(ref, alt)
	if err != nil {
		return nil, err
	}
	return c.classify(ref.Name, alt.Name, rc, ac, Domain{End: len(rc)}), nil
}

// ClassifyDomain estimates dN/dS within a codon range of the
// alignment. Both sequences are sliced in alignment coordinates before
// gaps are removed and codons are filtered.
func (c *Classifier) ClassifyDomain(ref, alt bio.Sequence, d Domain) (*Result, error) {
	for _, seq := range []bio.Sequence{ref, alt} {
		if err := d.Check(seq.Len() / 3); err != nil {
			return nil, fmt.Errorf("%q vs %q: %q: %w", ref.Name, alt.Name, seq.Name, err)
		}
	}
	ref.Sequence = ref.Sequence[3*d.Start : 3*d.End]
	alt.Sequence = alt.Sequence[3*d.Start : 3*d.End]
	rc, ac, err := codonPairs(ref, alt)
	if err != nil {
		return nil, fmt.Errorf("domain %v: %w", d, err)
	}
	return c.classify(ref.Name, alt.Name, rc, ac, d), nil
}

// classify counts sites over the reference codons and substitutions
// over the codon pairs where both codons are unambiguous sense codons.
func (c *Classifier) classify(refName, altName string, rc, ac []string, d Domain) *Result {
	r := &Result{
		Ref:    refName,
		Alt:    altName,
		Domain: d.Name,
		Start:  d.Start,
		End:    d.End,
	}
	r.SiteCount, _ = c.sites.Count(rc)
	for i := range rc {
		if !codon.Usable(rc[i], c.GCode) || !codon.Usable(ac[i], c.GCode) {
			r.Skipped++
			continue
		}
		r.Compared++
		if rc[i] == ac[i] {
			continue
		}
		raa, _ := c.GCode.Translate(rc[i])
		aaa, _ := c.GCode.Translate(ac[i])
		if raa == aaa {
			r.Sd++
		} else {
			r.Nd++
		}
	}
	if r.Skipped > 0 {
		log.Debugf("%s/%s %s: %d codon pairs skipped", refName, altName, d.Name, r.Skipped)
	}
	r.DN = rate(r.Nd, r.N)
	r.DS = rate(r.Sd, r.S)
	r.Ratio = ratio(r.DN, r.DS)
	return r
}

// codonPairs splits two sequences into aligned codons. Without gaps
// both sequences should have the same length divisible by 3. Sequences
// of the same aligned length divisible by 3 are compared in place,
// otherwise gaps are removed first.
func codonPairs(ref, alt bio.Sequence) (rc, ac []string, err error) {
	rs, as := ref.Sequence, alt.Sequence
	ur, ua := bio.Ungap(rs), bio.Ungap(as)
	if len(ur) != len(ua) {
		return nil, nil, fmt.Errorf("%w: coding sequences %q (length %d) and %q (length %d) differ in length without gaps",
			bio.ErrInput, ref.Name, len(ur), alt.Name, len(ua))
	}
	if len(ur) == 0 {
		return nil, nil, fmt.Errorf("%w: coding sequences %q and %q are empty", bio.ErrInput, ref.Name, alt.Name)
	}
	if len(ur)%3 != 0 {
		return nil, nil, fmt.Errorf("%w: coding sequences %q and %q: length %d without gaps doesn't divide by 3",
			bio.ErrInput, ref.Name, alt.Name, len(ur))
	}
	if len(rs) != len(as) || len(rs)%3 != 0 {
		rs, as = ur, ua
	}
	if rc, err = codon.Split(rs); err != nil {
		return nil, nil, fmt.Errorf("%q: %w", ref.Name, err)
	}
	if ac, err = codon.Split(as); err != nil {
		return nil, nil, fmt.Errorf("%q: %w", alt.Name, err)
	}
	return
}
