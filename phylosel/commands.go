package main

import (
	"fmt"
	"io"
	"os"

	"bitbucket.org/evolab/phylosel/bio"
	"bitbucket.org/evolab/phylosel/checkpoint"
	"bitbucket.org/evolab/phylosel/cluster"
	"bitbucket.org/evolab/phylosel/codon"
	"bitbucket.org/evolab/phylosel/distance"
	"bitbucket.org/evolab/phylosel/dnds"
	"bitbucket.org/evolab/phylosel/tree"
)

// readAlignment reads a fasta file.
func readAlignment(fn string) (bio.Sequences, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seqs, err := bio.ParseFasta(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	log.Infof("Read %d sequences from %s", len(seqs), fn)
	return seqs, nil
}

// readMatrix reads a PHYLIP distance matrix file.
func readMatrix(fn string) (*distance.Matrix, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dm, err := distance.ReadPhylip(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return dm, nil
}

// computeMatrix reads an alignment and computes the distance matrix.
func computeMatrix(fn, modelName string, nThreads int) (*distance.Matrix, int, error) {
	model, err := distance.ParseModel(modelName)
	if err != nil {
		return nil, 0, err
	}
	seqs, err := readAlignment(fn)
	if err != nil {
		return nil, 0, err
	}
	dm, err := distance.Compute(seqs, model, nThreads)
	if err != nil {
		return nil, 0, err
	}
	l, _ := seqs.Aligned()
	log.Infof("Computed %s distances, alignment length %d", model, l)
	return dm, l, nil
}

func runDist(w io.Writer, fn, modelName string, nThreads int) (*DistSummary, error) {
	dm, l, err := computeMatrix(fn, modelName, nThreads)
	if err != nil {
		return nil, err
	}
	if err := dm.WritePhylip(w); err != nil {
		return nil, err
	}
	s := &DistSummary{
		Model:     modelName,
		Names:     dm.Names(),
		Length:    l,
		Distances: make([][]float64, dm.Len()),
	}
	for i := range s.Distances {
		s.Distances[i] = make([]float64, dm.Len())
		for j := range s.Distances[i] {
			s.Distances[i][j] = dm.At(i, j)
		}
	}
	return s, nil
}

func runTree(w io.Writer, fn, methodName string, isMatrix bool, nThreads int) (*TreeSummary, error) {
	method, err := cluster.ParseMethod(methodName)
	if err != nil {
		return nil, err
	}
	var dm *distance.Matrix
	if isMatrix {
		dm, err = readMatrix(fn)
	} else {
		dm, _, err = computeMatrix(fn, distance.Identity.String(), nThreads)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("Distance matrix:\n%s", dm)

	t, err := cluster.Build(dm, method)
	if err != nil {
		return nil, err
	}
	log.Debug(t.FullString())
	stats := t.Stats()
	log.Infof("Tree: %v", stats)

	if _, err := fmt.Fprintln(w, t); err != nil {
		return nil, err
	}
	return &TreeSummary{Method: method.String(), Tree: t.String(), Stats: stats}, nil
}

func runStats(w io.Writer, fn string, branches bool) (*StatsSummary, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tree.ParseNewick(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	s := &StatsSummary{Stats: t.Stats()}
	fmt.Fprintf(w, "tips\t%d\n", s.Stats.Tips)
	fmt.Fprintf(w, "internal\t%d\n", s.Stats.Internal)
	fmt.Fprintf(w, "total\t%f\n", s.Stats.Total)
	fmt.Fprintf(w, "mean\t%f\n", s.Stats.Mean)
	fmt.Fprintf(w, "sd\t%f\n", s.Stats.SD)
	fmt.Fprintf(w, "min\t%f\n", s.Stats.Min)
	fmt.Fprintf(w, "max\t%f\n", s.Stats.Max)

	if branches {
		for node := range t.Walker(nil) {
			if node.IsRoot() {
				continue
			}
			s.Branches = append(s.Branches, Branch{ID: node.ID, Name: node.Name, Length: node.BranchLength})
		}
		fmt.Fprintln(w)
		for _, b := range s.Branches {
			fmt.Fprintf(w, "%d\t%s\t%f\n", b.ID, b.Name, b.Length)
		}
	}
	return s, nil
}

type dndsConfig struct {
	alignment  string
	gcodeID    int
	domains    string
	tp53       bool
	reference  string
	checkpoint string
	workers    int
}

func runDnds(w io.Writer, cfg dndsConfig) (*DndsSummary, error) {
	gcode, ok := bio.GeneticCodes[cfg.gcodeID]
	if !ok {
		return nil, fmt.Errorf("%w: couldn't load genetic code with id=%d", bio.ErrInput, cfg.gcodeID)
	}
	log.Infof("Genetic code: %d, \"%s\"", gcode.ID, gcode.Name)

	var domains []dnds.Domain
	switch {
	case cfg.domains != "" && cfg.tp53:
		return nil, fmt.Errorf("%w: --domains and --tp53 are mutually exclusive", bio.ErrInput)
	case cfg.tp53:
		domains = dnds.TP53Domains
	case cfg.domains != "":
		f, err := os.Open(cfg.domains)
		if err != nil {
			return nil, err
		}
		domains, err = dnds.ReadDomains(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.domains, err)
		}
	}
	for _, d := range domains {
		log.Infof("Domain %v", d)
	}

	seqs, err := readAlignment(cfg.alignment)
	if err != nil {
		return nil, err
	}
	if cali, err := codon.ToCodonSequences(seqs); err == nil {
		log.Infof("Read alignment of %d codons, %d fixed positions, %d ambiguous positions",
			cali.Length(), cali.NFixed(), cali.NAmbiguous(gcode))
	}
	var untranslatable []string
	for _, seq := range seqs {
		if _, err := gcode.TranslateSequence(bio.Ungap(seq.Sequence)); err != nil {
			log.Warningf("Sequence %q: %v", seq.Name, err)
			untranslatable = append(untranslatable, seq.Name)
		}
	}

	opts := dnds.Options{Reference: cfg.reference, Workers: cfg.workers}
	if cfg.checkpoint != "" {
		store, err := checkpoint.Open(cfg.checkpoint)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		opts.Store = store
	}

	results, err := dnds.Pairwise(dnds.New(gcode), seqs, domains, opts)
	if err != nil {
		return nil, err
	}
	if err := dnds.WriteCSV(w, results); err != nil {
		return nil, err
	}

	s := &DndsSummary{
		GeneticCode: gcode.ID,
		Reference:   cfg.reference,
		Domains:     domains,
		Results:     results,

		Untranslatable: untranslatable,
	}
	for _, r := range results {
		if r.Err != "" {
			s.Failed++
		}
	}
	return s, nil
}
