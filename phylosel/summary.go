package main

import (
	"bitbucket.org/evolab/phylosel/dnds"
	"bitbucket.org/evolab/phylosel/tree"
)

// RunSummary is storing phylosel run summary information.
type RunSummary struct {
	// Version stores phylosel version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Command is the sub-command.
	Command string `json:"command"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`
	// Result is the command specific summary.
	Result interface{} `json:"result,omitempty"`
}

// DistSummary summarizes a distance matrix computation.
type DistSummary struct {
	Model     string      `json:"model"`
	Names     []string    `json:"names"`
	Length    int         `json:"length"`
	Distances [][]float64 `json:"distances"`
}

// TreeSummary summarizes a tree building.
type TreeSummary struct {
	Method string     `json:"method"`
	Tree   string     `json:"tree"`
	Stats  tree.Stats `json:"stats"`
}

// Branch is a single branch of a tree.
type Branch struct {
	ID     int     `json:"id"`
	Name   string  `json:"name,omitempty"`
	Length float64 `json:"length"`
}

// StatsSummary summarizes a tree.
type StatsSummary struct {
	Stats    tree.Stats `json:"stats"`
	Branches []Branch   `json:"branches,omitempty"`
}

// DndsSummary summarizes a pairwise dN/dS run.
type DndsSummary struct {
	GeneticCode int           `json:"geneticCode"`
	Reference   string        `json:"reference,omitempty"`
	Domains     []dnds.Domain `json:"domains,omitempty"`
	Failed      int           `json:"failed"`
	Results     []dnds.Result `json:"results"`

	// Untranslatable sequences have a premature stop or an unknown
	// codon without gaps.
	Untranslatable []string `json:"untranslatable,omitempty"`
}
