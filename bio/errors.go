package bio

import "errors"

var (
	// ErrInput is returned (wrapped) for malformed or mismatched
	// input: unequal lengths, too few sequences, wrong codon
	// length, etc.
	ErrInput = errors.New("input error")
	// ErrUndefined is returned (wrapped) when a quantity cannot be
	// computed for otherwise valid input, e.g. two sequences
	// without a single comparable position.
	ErrUndefined = errors.New("undefined result")
)
