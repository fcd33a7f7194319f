/*

Phylosel computes pairwise distances between aligned sequences, builds
UPGMA and Neighbor-Joining trees from them and estimates dN/dS for
pairs of coding sequences.

Compute the identity distance matrix (PHYLIP format):

	phylosel dist alignment.fst

Build a tree from an alignment or from a distance matrix:

	phylosel tree --method nj alignment.fst
	phylosel tree --matrix distances.phy

Print tree statistics and branch lengths:

	phylosel stats --branches tree.nwk

Estimate dN/dS for every pair against a reference, per TP53 domain:

	phylosel dnds --tp53 --ref human --checkpoint run.db tp53.fst

Every flag can also be set with a PHYLOSEL_* environment variable. To
see all the options run:

	phylosel -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("phylosel")
var formatter = logging.MustStringFormatter(`%{message}`)

// loggers are all the package loggers, the level is set for each.
var loggers = []string{"phylosel", "distance", "cluster", "dnds", "checkpoint"}

// command-line options
var (
	// application
	app = kingpin.New("phylosel", "pairwise distances, distance trees and dN/dS").Version(version)

	// genetic code
	gcodeID = app.Flag("gcode", "NCBI genetic code id, standard by default").
		Envar("PHYLOSEL_GCODE").Default("1").Int()

	// technical
	nThreads = app.Flag("nt", "number of threads to use").
			Envar("PHYLOSEL_NT").Int()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").
			Envar("PHYLOSEL_CPUPROFILE").String()

	// input/output
	outLogF = app.Flag("log", "write log to a file").
		Envar("PHYLOSEL_LOG").String()
	outF = app.Flag("out", "write results to a file instead of stdout").
		Envar("PHYLOSEL_OUT").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Envar("PHYLOSEL_LOGLEVEL").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json summary to a file").
		Envar("PHYLOSEL_JSON").String()

	// dist
	distCmd       = app.Command("dist", "compute pairwise distance matrix (PHYLIP format)")
	distAlignment = distCmd.Arg("alignment", "sequence alignment (fasta)").Required().ExistingFile()
	distModel     = distCmd.Flag("model", "distance model").
			Envar("PHYLOSEL_MODEL").Default("identity").String()

	// tree
	treeCmd    = app.Command("tree", "build a tree (newick format)")
	treeInput  = treeCmd.Arg("input", "sequence alignment (fasta) or distance matrix (PHYLIP, with --matrix)").Required().ExistingFile()
	treeMethod = treeCmd.Flag("method", "tree building method (upgma or nj)").
			Envar("PHYLOSEL_METHOD").Default("upgma").Enum("upgma", "nj")
	treeMatrix = treeCmd.Flag("matrix", "input is a PHYLIP distance matrix").
			Envar("PHYLOSEL_MATRIX").Bool()

	// stats
	statsCmd      = app.Command("stats", "print tree statistics")
	statsTree     = statsCmd.Arg("tree", "tree (newick)").Required().ExistingFile()
	statsBranches = statsCmd.Flag("branches", "print every branch length").
			Envar("PHYLOSEL_BRANCHES").Bool()

	// dnds
	dndsCmd       = app.Command("dnds", "estimate pairwise dN/dS (CSV format)")
	dndsAlignment = dndsCmd.Arg("alignment", "codon alignment (fasta)").Required().ExistingFile()
	dndsDomains   = dndsCmd.Flag("domains", "domains table (tab separated: name, start, end; codons, zero based)").
			Envar("PHYLOSEL_DOMAINS").ExistingFile()
	dndsTP53 = dndsCmd.Flag("tp53", "use TP53 functional domains").
			Envar("PHYLOSEL_TP53").Bool()
	dndsRef = dndsCmd.Flag("ref", "only compare the reference sequence to all the others").
		Envar("PHYLOSEL_REF").String()
	dndsCheckpoint = dndsCmd.Flag("checkpoint", "checkpoint database, finished estimates are reused").
			Envar("PHYLOSEL_CHECKPOINT").String()
)

// output returns the results writer and a function closing it.
func output() (io.Writer, func()) {
	if *outF == "" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(*outF)
	if err != nil {
		log.Fatal("Error creating output file:", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Error("Error closing output file:", err)
		}
	}
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range loggers {
		logging.SetLevel(level, module)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	runtime.GOMAXPROCS(*nThreads)

	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	startTime := time.Now()
	w, closeOut := output()

	var result interface{}
	switch command {
	case distCmd.FullCommand():
		result, err = runDist(w, *distAlignment, *distModel, effectiveNThreads)
	case treeCmd.FullCommand():
		result, err = runTree(w, *treeInput, *treeMethod, *treeMatrix, effectiveNThreads)
	case statsCmd.FullCommand():
		result, err = runStats(w, *statsTree, *statsBranches)
	case dndsCmd.FullCommand():
		result, err = runDnds(w, dndsConfig{
			alignment:  *dndsAlignment,
			gcodeID:    *gcodeID,
			domains:    *dndsDomains,
			tp53:       *dndsTP53,
			reference:  *dndsRef,
			checkpoint: *dndsCheckpoint,
			workers:    effectiveNThreads,
		})
	}
	closeOut()
	if err != nil {
		log.Fatal(err)
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	summary := &RunSummary{
		Version:     version,
		CommandLine: os.Args,
		Command:     command,
		NThreads:    effectiveNThreads,
		Time:        deltaT.Seconds(),
		Result:      result,
	}

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
