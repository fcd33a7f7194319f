package codon

import (
	"fmt"

	"bitbucket.org/evolab/phylosel/bio"
)

// SiteCount is the number of synonymous (S) and non-synonymous (N)
// sites. A single codon has S+N=3.
type SiteCount struct {
	S float64 `json:"S"`
	N float64 `json:"N"`
}

// Add returns the sum of two site counts.
func (sc SiteCount) Add(o SiteCount) SiteCount {
	return SiteCount{S: sc.S + o.S, N: sc.N + o.N}
}

func (sc SiteCount) String() string {
	return fmt.Sprintf("<S=%f, N=%f>", sc.S, sc.N)
}

// SiteTable stores site counts for every sense codon of a genetic
// code.
type SiteTable struct {
	GCode *bio.GeneticCode
	sites map[string]SiteCount
}

// NewSiteTable computes site counts for a genetic code. For each
// codon all the 9 single nucleotide substitutions are considered; a
// substitution is synonymous if the mutated codon encodes the same
// amino acid. The synonymous site count is the number of synonymous
// substitutions divided by 3, the rest of the 3 sites are
// non-synonymous.
func NewSiteTable(gcode *bio.GeneticCode) *SiteTable {
	st := &SiteTable{
		GCode: gcode,
		sites: make(map[string]SiteCount, gcode.NCodon),
	}
	for c, aa := range gcode.Map {
		if aa == bio.Stop {
			continue
		}
		syn := 0
		mut := []byte(c)
		for pos := 0; pos < 3; pos++ {
			for _, l := range bio.Alphabet {
				if l == c[pos] {
					continue
				}
				mut[pos] = l
				if maa, _ := gcode.Translate(string(mut)); maa == aa {
					syn++
				}
			}
			mut[pos] = c[pos]
		}
		s := float64(syn) / 3
		st.sites[c] = SiteCount{S: s, N: 3 - s}
	}
	return st
}

// Sites returns the site count for a codon. ok is false for stop,
// gapped and ambiguous codons.
func (st *SiteTable) Sites(c string) (sc SiteCount, ok bool) {
	sc, ok = st.sites[c]
	return
}

// Count sums site counts over codons. Codons without a site count are
// skipped and their number is returned.
func (st *SiteTable) Count(codons []string) (sc SiteCount, excluded int) {
	for _, c := range codons {
		s, ok := st.sites[c]
		if !ok {
			excluded++
			continue
		}
		sc = sc.Add(s)
	}
	return
}
