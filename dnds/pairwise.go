package dnds

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"bitbucket.org/evolab/phylosel/bio"
	"bitbucket.org/evolab/phylosel/checkpoint"
)

// Store persists finished results; *checkpoint.Store implements it.
type Store interface {
	Save(key string, v interface{}) error
	Load(key string, v interface{}) (bool, error)
}

// Options control a pairwise run.
type Options struct {
	// Reference restricts the run to pairs with this sequence as ref.
	// All unordered pairs are used if empty.
	Reference string
	// Workers is the number of goroutines, all CPUs if < 1.
	Workers int
	// Store is consulted before and updated after every computation.
	Store Store
}

type job struct {
	ref, alt bio.Sequence
	domain   *Domain
}

func (j job) key(gcode *bio.GeneticCode) string {
	d := "full"
	if j.domain != nil {
		d = fmt.Sprintf("%s:%d:%d", j.domain.Name, j.domain.Start, j.domain.End)
	}
	return checkpoint.Key("dnds", strconv.Itoa(gcode.ID), j.ref.Name, j.alt.Name, d,
		digest(j.ref.Sequence, j.alt.Sequence))
}

// digest identifies sequence contents, so edited sequences are not
// loaded from a checkpoint.
func digest(seqs ...string) string {
	h := sha256.New()
	for _, s := range seqs {
		io.WriteString(h, s)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Pairwise estimates dN/dS for sequence pairs over the full length and
// every domain. The output order is pairs in input order, each pair
// followed by its domains. Failing pairs do not stop the run, the
// error is stored in Result.Err.
func Pairwise(c *Classifier, seqs bio.Sequences, domains []Domain, opts Options) ([]Result, error) {
	if len(seqs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 sequences are required, got %d", bio.ErrInput, len(seqs))
	}
	if err := seqs.Validate(); err != nil {
		return nil, err
	}

	var pairs [][2]bio.Sequence
	if opts.Reference != "" {
		ref, ok := seqs.Get(opts.Reference)
		if !ok {
			return nil, fmt.Errorf("%w: reference sequence %q not found", bio.ErrInput, opts.Reference)
		}
		for _, seq := range seqs {
			if seq.Name != ref.Name {
				pairs = append(pairs, [2]bio.Sequence{ref, seq})
			}
		}
	} else {
		for i := range seqs {
			for j := i + 1; j < len(seqs); j++ {
				pairs = append(pairs, [2]bio.Sequence{seqs[i], seqs[j]})
			}
		}
	}

	jobs := make([]job, 0, len(pairs)*(len(domains)+1))
	for _, p := range pairs {
		jobs = append(jobs, job{ref: p[0], alt: p[1]})
		for i := range domains {
			jobs = append(jobs, job{ref: p[0], alt: p[1], domain: &domains[i]})
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	log.Infof("Estimating dN/dS for %d pairs, %d domains, %d workers", len(pairs), len(domains), workers)

	results := make([]Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = c.run(j, opts.Store)
			return nil
		})
	}
	g.Wait()

	nerr := 0
	for _, r := range results {
		if r.Err != "" {
			nerr++
		}
	}
	if nerr > 0 {
		log.Warningf("%d of %d estimates failed", nerr, len(results))
	}
	return results, nil
}

// run computes one job, using the store if possible.
func (c *Classifier) run(j job, store Store) Result {
	key := j.key(c.GCode)
	if store != nil {
		var r Result
		found, err := store.Load(key, &r)
		if err != nil {
			log.Warningf("Cannot load checkpoint for %s/%s: %v", j.ref.Name, j.alt.Name, err)
		} else if found {
			log.Debugf("Loaded %v from checkpoint", &r)
			return r
		}
	}

	var res *Result
	var err error
	if j.domain == nil {
		res, err = c.Classify(j.ref, j.alt)
	} else {
		res, err = c.ClassifyDomain(j.ref, j.alt, *j.domain)
	}
	if err != nil {
		log.Warningf("%s/%s: %v", j.ref.Name, j.alt.Name, err)
		res = &Result{Ref: j.ref.Name, Alt: j.alt.Name, DN: NA, DS: NA, Ratio: NA, Err: err.Error()}
		if j.domain != nil {
			res.Domain, res.Start, res.End = j.domain.Name, j.domain.Start, j.domain.End
		}
		// errors are not saved, input may be fixed before the rerun
		return *res
	}
	log.Debug(res)

	if store != nil {
		if err := store.Save(key, res); err != nil {
			log.Warningf("Cannot save checkpoint for %s/%s: %v", j.ref.Name, j.alt.Name, err)
		}
	}
	return *res
}

var csvHeader = []string{
	"ref", "alt", "domain", "start", "end",
	"S", "N", "sd", "nd", "dN", "dS", "ratio",
	"compared", "skipped", "error",
}

// WriteCSV writes results as a comma separated table. Infinite values
// are written as Inf, undefined as NA.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Ref, r.Alt, r.Domain,
			strconv.Itoa(r.Start), strconv.Itoa(r.End),
			strconv.FormatFloat(r.S, 'f', 6, 64),
			strconv.FormatFloat(r.N, 'f', 6, 64),
			strconv.Itoa(r.Sd), strconv.Itoa(r.Nd),
			r.DN.String(), r.DS.String(), r.Ratio.String(),
			strconv.Itoa(r.Compared), strconv.Itoa(r.Skipped),
			r.Err,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
