package bio

import (
	"bytes"
	"fmt"
	"strings"
)

// Stop is the amino acid symbol used for stop codons.
const Stop = '*'

// Alphabet is the nucleotide alphabet in the NCBI codon table order.
var Alphabet = [...]byte{'T', 'C', 'A', 'G'}

// GeneticCode is a translation table.
type GeneticCode struct {
	ID   int
	Name string
	// Map is a map, codon string (capital letters) is the key,
	// amino acids (capital letter) are values.
	Map map[string]byte
	// ReverseMap is mapping amino acids to their codons.
	ReverseMap map[byte][]string
	// NCodon is the number of sense codons.
	NCodon int
}

// GeneticCodes is a map holding genetic codes by NCBI id.
var GeneticCodes = map[int]*GeneticCode{
	1: newGeneticCode(1, "Standard",
		"FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"),
	2: newGeneticCode(2, "Vertebrate Mitochondrial",
		"FFLLSSSSYY**CCWWLLLLPPPPHHQQRRRRIIMMTTTTNNKKSS**VVVVAAAADDEEGGGG"),
	5: newGeneticCode(5, "Invertebrate Mitochondrial",
		"FFLLSSSSYY**CCWWLLLLPPPPHHQQRRRRIIMMTTTTNNKKSSSSVVVVAAAADDEEGGGG"),
	11: newGeneticCode(11, "Bacterial, Archaeal and Plant Plastid",
		"FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"),
}

// newGeneticCode creates a genetic code from the NCBI ncbieaa string.
func newGeneticCode(id int, name, ncbieaa string) *GeneticCode {
	gc := &GeneticCode{
		ID:         id,
		Name:       name,
		Map:        make(map[string]byte, 64),
		ReverseMap: make(map[byte][]string, 21),
	}
	i := 0
	for _, l1 := range Alphabet {
		for _, l2 := range Alphabet {
			for _, l3 := range Alphabet {
				codon := string([]byte{l1, l2, l3})
				aa := ncbieaa[i]
				gc.Map[codon] = aa
				gc.ReverseMap[aa] = append(gc.ReverseMap[aa], codon)
				if aa != Stop {
					gc.NCodon++
				}
				i++
			}
		}
	}
	return gc
}

// Translate returns the amino acid encoded by a codon (capital
// letters, DNA alphabet). ok is false for codons which contain
// anything but A, C, G and T.
func (gc *GeneticCode) Translate(codon string) (aa byte, ok bool) {
	aa, ok = gc.Map[codon]
	return
}

// IsStopCodon tests if the string is a stop-codon (DNA alphabet,
// capital letters).
func (gc *GeneticCode) IsStopCodon(codon string) bool {
	return gc.Map[codon] == Stop
}

// TranslateSequence translates nucleotide sequence string into the
// protein string. Error is returned is sequence is not divisible by
// three, non-terminal stop-codon is found or wrong codon is
// encountered.
func (gc *GeneticCode) TranslateSequence(nseq string) (string, error) {
	var buffer bytes.Buffer

	if len(nseq)%3 != 0 {
		return "", fmt.Errorf("%w: sequence length %d doesn't divide by 3", ErrInput, len(nseq))
	}

	// Convert all the letters to uppercase and U->T.
	nseq = strings.Replace(strings.ToUpper(nseq), "U", "T", -1)

	for i := 0; i < len(nseq); i += 3 {
		aa, ok := gc.Map[nseq[i:i+3]]
		if !ok {
			return buffer.String(), fmt.Errorf("%w: unknown codon %q at position %d", ErrInput, nseq[i:i+3], i+1)
		} else if aa == Stop {
			if i+3 >= len(nseq) {
				// it's ok if this is the last codon
				break
			}
			return buffer.String(), fmt.Errorf("%w: premature stop codon at position %d", ErrInput, i+1)
		}
		buffer.WriteByte(aa)
	}
	return buffer.String(), nil
}
