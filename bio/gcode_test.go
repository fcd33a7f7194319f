package bio

import (
	"errors"
	"testing"
)

func TestStandardCode(tst *testing.T) {
	gc := GeneticCodes[1]
	if gc.NCodon != 61 {
		tst.Error("Standard code should have 61 sense codons, got", gc.NCodon)
	}
	cases := map[string]byte{
		"ATG": 'M', "AAA": 'K', "AAG": 'K', "ACA": 'T',
		"TGG": 'W', "TAA": Stop, "TAG": Stop, "TGA": Stop,
		"GGG": 'G', "CGT": 'R',
	}
	for codon, want := range cases {
		if aa, ok := gc.Translate(codon); !ok || aa != want {
			tst.Errorf("Translate(%s): got %c, want %c", codon, aa, want)
		}
	}
	if _, ok := gc.Translate("ANA"); ok {
		tst.Error("Ambiguous codon should not translate")
	}
	if len(gc.ReverseMap['L']) != 6 {
		tst.Error("Leucine should have 6 codons, got", gc.ReverseMap['L'])
	}
}

func TestMitochondrialCode(tst *testing.T) {
	gc := GeneticCodes[2]
	if !gc.IsStopCodon("AGA") || gc.IsStopCodon("TGA") {
		tst.Error("Wrong stop codons for vertebrate mitochondrial code")
	}
	if aa, _ := gc.Translate("ATA"); aa != 'M' {
		tst.Error("ATA should be methionine, got", string(aa))
	}
	if gc.NCodon != 60 {
		tst.Error("Vertebrate mitochondrial code should have 60 sense codons, got", gc.NCodon)
	}
}

func TestTranslateSequence(tst *testing.T) {
	gc := GeneticCodes[1]
	p, err := gc.TranslateSequence("atgaaaugg")
	if err != nil || p != "MKW" {
		tst.Error("Wrong translation:", p, err)
	}
	p, err = gc.TranslateSequence("ATGTAA")
	if err != nil || p != "M" {
		tst.Error("Terminal stop should be accepted:", p, err)
	}
	if _, err = gc.TranslateSequence("TAAATG"); !errors.Is(err, ErrInput) {
		tst.Error("Premature stop should fail, got", err)
	}
	if _, err = gc.TranslateSequence("ATGA"); !errors.Is(err, ErrInput) {
		tst.Error("Length not divisible by 3 should fail, got", err)
	}
}
