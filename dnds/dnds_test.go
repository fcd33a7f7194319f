package dnds

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"bitbucket.org/evolab/phylosel/bio"
)

const smallDiff = 1e-9

func appreq(a, b float64) bool {
	return math.Abs(a-b) <= smallDiff
}

func seq(name, s string) bio.Sequence {
	return bio.Sequence{Name: name, Sequence: s}
}

func classify(tst *testing.T, ref, alt string) *Result {
	c := New(bio.GeneticCodes[1])
	r, err := c.Classify(seq("ref", ref), seq("alt", alt))
	if err != nil {
		tst.Fatal(err)
	}
	return r
}

func TestIdentical(tst *testing.T) {
	r := classify(tst, "ATGAAACCCGGG", "ATGAAACCCGGG")
	if r.Sd != 0 || r.Nd != 0 {
		tst.Error("Identical sequences have substitutions:", r)
	}
	if r.DN != Value(0) || r.DS != Value(0) {
		tst.Error("dN and dS should be zero:", r)
	}
	if r.Ratio != Inf {
		tst.Error("Zero dS should give infinite ratio:", r.Ratio)
	}
	if r.Compared != 4 || r.Skipped != 0 {
		tst.Error("Wrong number of compared codons:", r)
	}
}

func TestSynonymous(tst *testing.T) {
	r := classify(tst, "AAA", "AAG")
	if r.Sd != 1 || r.Nd != 0 {
		tst.Error("AAA->AAG should be synonymous:", r)
	}
	if !appreq(r.S, 1./3) || !appreq(r.N, 8./3) {
		tst.Error("Wrong site count:", r.SiteCount)
	}
	if r.DS.Kind != Defined || !appreq(r.DS.Value, 3) {
		tst.Error("Wrong dS:", r.DS)
	}
	if r.Ratio != Value(0) {
		tst.Error("Wrong ratio:", r.Ratio)
	}
}

func TestNonSynonymous(tst *testing.T) {
	r := classify(tst, "AAA", "ACA")
	if r.Sd != 0 || r.Nd != 1 {
		tst.Error("AAA->ACA should be non-synonymous:", r)
	}
	if r.DN.Kind != Defined || !appreq(r.DN.Value, 0.375) {
		tst.Error("Wrong dN:", r.DN)
	}
	if r.Ratio != Inf {
		tst.Error("Wrong ratio:", r.Ratio)
	}
}

func TestNoSynonymousSites(tst *testing.T) {
	// ATG has no synonymous sites in the standard code
	r := classify(tst, "ATG", "ATA")
	if r.Nd != 1 {
		tst.Error("ATG->ATA should be non-synonymous:", r)
	}
	if r.DS != NA || r.Ratio != NA {
		tst.Error("dS and ratio should be undefined:", r)
	}
	if r.DN.Kind != Defined || !appreq(r.DN.Value, 1./3) {
		tst.Error("Wrong dN:", r.DN)
	}
}

func TestGappedInPlace(tst *testing.T) {
	r := classify(tst, "ATG---AAACCC", "ATGCCCAAG---")
	if r.Compared != 2 || r.Skipped != 2 {
		tst.Error("Gapped codons should be skipped:", r)
	}
	if r.Sd != 1 || r.Nd != 0 {
		tst.Error("Wrong substitutions:", r)
	}
	// ATG, AAA and CCC of the reference
	if !appreq(r.S, 4./3) || !appreq(r.N, 23./3) {
		tst.Error("Wrong site count:", r.SiteCount)
	}
}

func TestGapStripping(tst *testing.T) {
	r := classify(tst, "ATGAA-A", "ATGAAG")
	if r.Compared != 2 || r.Sd != 1 || r.End != 2 {
		tst.Error("Wrong result after gap removal:", r)
	}
}

func TestStopCodons(tst *testing.T) {
	r := classify(tst, "TAAAAA", "TAAAAG")
	if r.Skipped != 1 || r.Compared != 1 || r.Sd != 1 {
		tst.Error("Stop codon should be skipped:", r)
	}
	r = classify(tst, "AAAAAA", "AAATAA")
	if r.Skipped != 1 || r.Nd != 0 {
		tst.Error("Stop codon in alt should be skipped:", r)
	}
	// sites come from every reference codon
	if !appreq(r.S+r.N, 6) || !appreq(r.S, 2./3) {
		tst.Error("Wrong site count:", r.SiteCount)
	}
	if r.DS != Value(0) || r.DN != Value(0) {
		tst.Error("Wrong estimates:", r)
	}
	r = classify(tst, "ANAAAA", "AAAAAA")
	if r.Skipped != 1 || r.Compared != 1 {
		tst.Error("Ambiguous codon should be skipped:", r)
	}
}

func TestClassifyErrors(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	for _, p := range [][2]string{
		{"ATGA", "ATGA"},
		{"ATG", "ATGAAA"},
		{"", "---"},
		{"ATG---AAA", "ATGCCCAAG"},
		{"AAAAAA", "AAA---"},
		{"ATG-AAC", "ATGAACC"},
	} {
		_, err := c.Classify(seq("a", p[0]), seq("b", p[1]))
		if !errors.Is(err, bio.ErrInput) {
			tst.Errorf("%v: expected input error, got %v", p, err)
		}
	}
	_, err := c.Classify(seq("a", "ATG---AAA"), seq("b", "ATGCCCAAG"))
	if err == nil || !strings.Contains(err.Error(), `"a" (length 6)`) || !strings.Contains(err.Error(), `"b" (length 9)`) {
		tst.Error("Error should name the sequences and lengths:", err)
	}

	r, err := c.Classify(seq("a", "TAA"), seq("b", "TAA"))
	if err != nil {
		tst.Fatal(err)
	}
	if r.Compared != 0 || r.DN != NA || r.DS != NA || r.Ratio != NA {
		tst.Error("No compared codons should give undefined estimates:", r)
	}
}

func TestDomain(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	ref, alt := seq("ref", "ATGAAAAAA"), seq("alt", "ATGAAGACA")

	r, err := c.Classify(ref, alt)
	if err != nil {
		tst.Fatal(err)
	}
	if r.Sd != 1 || r.Nd != 1 {
		tst.Error("Wrong full length result:", r)
	}

	r, err = c.ClassifyDomain(ref, alt, Domain{"second", 1, 2})
	if err != nil {
		tst.Fatal(err)
	}
	if r.Sd != 1 || r.Nd != 0 || r.Domain != "second" || r.Start != 1 || r.End != 2 {
		tst.Error("Wrong domain result:", r)
	}

	r, err = c.ClassifyDomain(ref, alt, Domain{"third", 2, 3})
	if err != nil {
		tst.Fatal(err)
	}
	if r.Sd != 0 || r.Nd != 1 {
		tst.Error("Wrong domain result:", r)
	}

	for _, d := range []Domain{{"out", 2, 4}, {"empty", 1, 1}, {"neg", -1, 1}} {
		if _, err := c.ClassifyDomain(ref, alt, d); !errors.Is(err, bio.ErrInput) {
			tst.Errorf("%v: expected input error, got %v", d, err)
		}
	}
}

func TestDomainAlignedCoordinates(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	ref, alt := seq("ref", "ATG---AAACCC"), seq("alt", "ATGCCCAAGCCC")

	// the reference has 3 codons without gaps, the domain is in
	// alignment codons
	r, err := c.ClassifyDomain(ref, alt, Domain{"d", 2, 4})
	if err != nil {
		tst.Fatal(err)
	}
	if r.Sd != 1 || r.Nd != 0 || r.Compared != 2 || r.Skipped != 0 {
		tst.Error("Wrong domain result:", r)
	}
	if !appreq(r.S, 4./3) || !appreq(r.N, 14./3) {
		tst.Error("Wrong site count:", r.SiteCount)
	}

	if _, err := c.Classify(ref, alt); !errors.Is(err, bio.ErrInput) {
		tst.Error("Different lengths without gaps should fail, got", err)
	}
	if _, err := c.ClassifyDomain(ref, alt, Domain{"d", 0, 2}); !errors.Is(err, bio.ErrInput) {
		tst.Error("Gapped domain with different lengths should fail, got", err)
	}
	_, err = c.ClassifyDomain(seq("a", "AAA--AAAAAA-"), seq("b", "AAAAAAAAA"), Domain{"d", 0, 2})
	if !errors.Is(err, bio.ErrInput) {
		tst.Error("Domain should be sliced before gap removal, got", err)
	}
}

func TestReadDomains(tst *testing.T) {
	data := "# comment\nName\tStart\tEnd\nfirst\t0\t10\nsecond\t10\t20\n"
	domains, err := ReadDomains(strings.NewReader(data))
	if err != nil {
		tst.Fatal(err)
	}
	if len(domains) != 2 || domains[1] != (Domain{"second", 10, 20}) {
		tst.Error("Wrong domains:", domains)
	}

	for _, bad := range []string{
		"name\tstart\n",
		"name\tstart\tend\nx\ta\t2\n",
		"name\tstart\tend\nx\t5\t2\n",
		"name\tstart\tend\nx\t0\t2\nx\t2\t4\n",
		"name\tstart\tend\nx\t0\n",
	} {
		if _, err := ReadDomains(strings.NewReader(bad)); !errors.Is(err, bio.ErrInput) {
			tst.Errorf("%q: expected input error, got %v", bad, err)
		}
	}
}

func TestTP53Domains(tst *testing.T) {
	for i, d := range TP53Domains {
		if err := d.Check(393); err != nil {
			tst.Error(err)
		}
		if i > 0 && d.Start < TP53Domains[i-1].End {
			tst.Error("Overlapping domains:", d)
		}
	}
}

type memStore struct {
	sync.Mutex
	data  map[string][]byte
	saves int
}

func (s *memStore) Save(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.data[key] = b
	s.saves++
	return nil
}

func (s *memStore) Load(key string, v interface{}) (bool, error) {
	s.Lock()
	b, ok := s.data[key]
	s.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

var pairSeqs = bio.Sequences{
	{Name: "human", Sequence: "ATGAAAAAACCC"},
	{Name: "pig", Sequence: "ATGAAGACACCC"},
	{Name: "mouse", Sequence: "ATGAAAAAACCT"},
}

func TestPairwise(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	domains := []Domain{{"d", 1, 3}}
	res, err := Pairwise(c, pairSeqs, domains, Options{Workers: 2})
	if err != nil {
		tst.Fatal(err)
	}
	want := [][3]string{
		{"human", "pig", ""}, {"human", "pig", "d"},
		{"human", "mouse", ""}, {"human", "mouse", "d"},
		{"pig", "mouse", ""}, {"pig", "mouse", "d"},
	}
	if len(res) != len(want) {
		tst.Fatal("Wrong number of results:", len(res))
	}
	for i, w := range want {
		if res[i].Ref != w[0] || res[i].Alt != w[1] || res[i].Domain != w[2] {
			tst.Errorf("result %d: got %v, want %v", i, &res[i], w)
		}
		if res[i].Err != "" {
			tst.Error("Unexpected error:", res[i].Err)
		}
	}
	if res[2].Sd != 1 || res[2].Nd != 0 {
		tst.Error("Wrong human/mouse result:", &res[2])
	}
	if res[3].Sd != 0 || res[3].Compared != 2 {
		tst.Error("Wrong human/mouse domain result:", &res[3])
	}

	res, err = Pairwise(c, pairSeqs, nil, Options{Reference: "mouse"})
	if err != nil {
		tst.Fatal(err)
	}
	if len(res) != 2 || res[0].Ref != "mouse" || res[0].Alt != "human" || res[1].Alt != "pig" {
		tst.Error("Wrong reference pairs:", res)
	}

	if _, err := Pairwise(c, pairSeqs, nil, Options{Reference: "cow"}); !errors.Is(err, bio.ErrInput) {
		tst.Error("Expected input error for missing reference, got", err)
	}
	if _, err := Pairwise(c, pairSeqs[:1], nil, Options{}); !errors.Is(err, bio.ErrInput) {
		tst.Error("Expected input error for a single sequence, got", err)
	}
}

func TestPairwiseErrors(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	seqs := append(bio.Sequences{}, pairSeqs...)
	seqs = append(seqs, bio.Sequence{Name: "short", Sequence: "ATG"})
	res, err := Pairwise(c, seqs, []Domain{{"d", 1, 3}}, Options{Reference: "human"})
	if err != nil {
		tst.Fatal(err)
	}
	if len(res) != 6 {
		tst.Fatal("Wrong number of results:", len(res))
	}
	for _, r := range res[:4] {
		if r.Err != "" {
			tst.Error("Unexpected error:", r.Err)
		}
	}
	for _, r := range res[4:] {
		if r.Err == "" || r.Ratio != NA || r.Alt != "short" {
			tst.Error("Error should be recorded:", &r)
		}
	}
	if res[5].Domain != "d" || res[5].End != 3 {
		tst.Error("Failed domain result should keep the range:", &res[5])
	}
}

func TestPairwiseStore(tst *testing.T) {
	c := New(bio.GeneticCodes[1])
	store := &memStore{data: make(map[string][]byte)}
	first, err := Pairwise(c, pairSeqs, []Domain{{"d", 1, 3}}, Options{Store: store})
	if err != nil {
		tst.Fatal(err)
	}
	if store.saves != len(first) {
		tst.Error("Every result should be saved:", store.saves)
	}
	second, err := Pairwise(c, pairSeqs, []Domain{{"d", 1, 3}}, Options{Store: store})
	if err != nil {
		tst.Fatal(err)
	}
	if store.saves != len(first) {
		tst.Error("Results should be loaded, not recomputed:", store.saves)
	}
	for i := range first {
		if first[i] != second[i] {
			tst.Errorf("Loaded result differs: %v != %v", &first[i], &second[i])
		}
	}

	// an edited sequence is recomputed
	edited := append(bio.Sequences{}, pairSeqs...)
	edited[1] = bio.Sequence{Name: "pig", Sequence: "ATGAAGAAACCC"}
	third, err := Pairwise(c, edited, []Domain{{"d", 1, 3}}, Options{Store: store})
	if err != nil {
		tst.Fatal(err)
	}
	if store.saves != len(first)+4 {
		tst.Error("Pairs with the edited sequence should be recomputed:", store.saves)
	}
	if third[0].Sd != 1 || third[0].Nd != 0 || first[0].Nd != 1 {
		tst.Error("Stale human/pig result:", &third[0])
	}
	if third[2] != first[2] {
		tst.Error("Unchanged pair should be loaded:", &third[2])
	}
}

func TestEstimateJSON(tst *testing.T) {
	r := classify(tst, "ATG", "ATA")
	b, err := json.Marshal(r)
	if err != nil {
		tst.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"dS":null`) || !strings.Contains(s, `"ratio":null`) || !strings.Contains(s, `"nd":1`) {
		tst.Error("Wrong JSON:", s)
	}

	for _, e := range []Estimate{Value(0.25), Inf, NA} {
		b, err := json.Marshal(e)
		if err != nil {
			tst.Fatal(err)
		}
		var d Estimate
		if err := json.Unmarshal(b, &d); err != nil {
			tst.Fatal(err)
		}
		if d != e {
			tst.Errorf("%s: got %v, want %v", b, d, e)
		}
	}
	if b, _ := json.Marshal(Inf); string(b) != `"Infinity"` {
		tst.Error("Wrong infinity encoding:", string(b))
	}
}

func TestWriteCSV(tst *testing.T) {
	var buf bytes.Buffer
	r := classify(tst, "AAA", "ACA")
	if err := WriteCSV(&buf, []Result{*r}); err != nil {
		tst.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		tst.Fatal("Wrong number of lines:", lines)
	}
	if !strings.HasPrefix(lines[0], "ref,alt,domain,start,end,S,N,sd,nd,dN,dS,ratio") {
		tst.Error("Wrong header:", lines[0])
	}
	if lines[1] != "ref,alt,,0,1,0.333333,2.666667,0,1,0.375000,0.000000,Inf,1,0," {
		tst.Error("Wrong row:", lines[1])
	}
}
