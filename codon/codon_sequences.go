// Package codon splits coding sequences into codons and counts
// synonymous and non-synonymous sites.
package codon

import (
	"bytes"
	"fmt"
	"strings"

	"bitbucket.org/evolab/phylosel/bio"
)

// Sequence is a coding sequence split into codons. Codons keep gap
// and ambiguity characters.
type Sequence struct {
	Name   string
	Codons []string
}

// Sequences is a codon alignment.
type Sequences []Sequence

func normalize(s string) string {
	return strings.Replace(strings.ToUpper(s), "U", "T", -1)
}

// Split splits a nucleotide string into codons. The length should be
// divisible by three.
func Split(s string) ([]string, error) {
	if len(s)%3 != 0 {
		return nil, fmt.Errorf("%w: sequence length %d doesn't divide by 3", bio.ErrInput, len(s))
	}
	s = normalize(s)
	codons := make([]string, 0, len(s)/3)
	for i := 0; i < len(s); i += 3 {
		codons = append(codons, s[i:i+3])
	}
	return codons, nil
}

// Ambiguous tests if a codon contains anything but A, C, G and T
// (gaps included).
func Ambiguous(c string) bool {
	if len(c) != 3 {
		return true
	}
	for i := 0; i < len(c); i++ {
		switch c[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return true
		}
	}
	return false
}

// Usable tests if a codon is unambiguous and is not a stop codon.
func Usable(c string, gcode *bio.GeneticCode) bool {
	return !Ambiguous(c) && !gcode.IsStopCodon(c)
}

func ToCodonSequences(seqs bio.Sequences) (cs Sequences, err error) {
	cs = make(Sequences, 0, len(seqs))
	for _, seq := range seqs {
		codons, err := Split(seq.Sequence)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", seq.Name, err)
		}
		cs = append(cs, Sequence{Name: seq.Name, Codons: codons})
	}
	return
}

func (seqs Sequences) Length() int {
	if len(seqs) == 0 {
		return 0
	}
	return len(seqs[0].Codons)
}

// NAmbiguous returns the number of codon positions where at least one
// sequence has a gapped, ambiguous or stop codon.
func (seqs Sequences) NAmbiguous(gcode *bio.GeneticCode) (count int) {
	for i := 0; i < seqs.Length(); i++ {
		for _, seq := range seqs {
			if i >= len(seq.Codons) || !Usable(seq.Codons[i], gcode) {
				count++
				break
			}
		}
	}
	return
}

func (seqs Sequences) NFixed() (f int) {
	f = seqs.Length()
	for pos := 0; pos < seqs.Length(); pos++ {
		for i := 1; i < len(seqs); i++ {
			if pos >= len(seqs[i].Codons) || seqs[i].Codons[pos] != seqs[0].Codons[pos] {
				f--
				break
			}
		}
	}
	return
}

func (seq Sequence) String() (s string) {
	var b bytes.Buffer
	for _, c := range seq.Codons {
		b.WriteString(c + " ")
	}
	s = ">" + seq.Name + "\n" + bio.Wrap(b.String(), 80)
	return
}
