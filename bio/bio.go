// Package bio provides sequence containers, FASTA input/output and the
// genetic codes used throughout phylosel.
package bio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sequence is a type which is intended for storing nucleotide or
// protein sequence with it's name. Aligned sequences keep their gap
// characters.
type Sequence struct {
	Name     string
	Sequence string
}

// Sequences stores multiple sequences. E.g. a sequence alignment.
type Sequences []Sequence

// IsGap tests if a symbol is an alignment gap.
func IsGap(c byte) bool {
	return c == '-' || c == '.'
}

// Ungap returns the sequence string with all the gap characters
// removed.
func Ungap(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if !IsGap(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Len returns the aligned length of the sequence (gaps included).
func (seq Sequence) Len() int {
	return len(seq.Sequence)
}

// ParseFasta parses FASTA sequences from a reader. Sequence letters
// are converted to upper case, U is kept as is, gaps are preserved.
func ParseFasta(rd io.Reader) (seqs Sequences, err error) {
	seqs = make(Sequences, 0, 10)
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			seq := Sequence{Name: strings.TrimSpace(line[1:])}
			seqs = append(seqs, seq)
		} else {
			if len(seqs) == 0 {
				return nil, fmt.Errorf("%w: sequence w/o prefix", ErrInput)
			}
			line = strings.ToUpper(strings.Join(strings.Fields(line), ""))
			seqs[len(seqs)-1].Sequence += line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return
}

// Validate checks that every sequence has a non-empty name and names
// are unique.
func (seqs Sequences) Validate() error {
	seen := make(map[string]bool, len(seqs))
	for i, seq := range seqs {
		if seq.Name == "" {
			return fmt.Errorf("%w: sequence %d has an empty name", ErrInput, i+1)
		}
		if seen[seq.Name] {
			return fmt.Errorf("%w: duplicated sequence name %q", ErrInput, seq.Name)
		}
		seen[seq.Name] = true
	}
	return nil
}

// Aligned checks that all the sequences have the same length, and
// returns this length.
func (seqs Sequences) Aligned() (int, error) {
	if len(seqs) == 0 {
		return 0, errors.New("no sequences")
	}
	l := seqs[0].Len()
	for _, seq := range seqs[1:] {
		if seq.Len() != l {
			return 0, fmt.Errorf("%w: sequences %q (length %d) and %q (length %d) are not aligned",
				ErrInput, seqs[0].Name, l, seq.Name, seq.Len())
		}
	}
	return l, nil
}

// Names returns the sequence names in order.
func (seqs Sequences) Names() []string {
	names := make([]string, len(seqs))
	for i, seq := range seqs {
		names[i] = seq.Name
	}
	return names
}

// Get returns the sequence with the given name.
func (seqs Sequences) Get(name string) (Sequence, bool) {
	for _, seq := range seqs {
		if seq.Name == name {
			return seq, true
		}
	}
	return Sequence{}, false
}

// Wrap inputs a string and wraps it so string length is n characters
// or less.
func Wrap(seq string, n int) (s string) {
	var b bytes.Buffer
	for i := 0; i < len(seq); i += n {
		end := i + n
		if end > len(seq) {
			end = len(seq)
		}
		b.WriteString(seq[i:end])
		b.WriteByte('\n')
	}
	return b.String()
}

// String returns a sequence in FASTA format.
func (seq Sequence) String() (s string) {
	s = ">" + seq.Name + "\n" + Wrap(seq.Sequence, 80)
	return
}

// String returns sequences in FASTA format.
func (seqs Sequences) String() (s string) {
	if len(seqs) == 0 {
		return ""
	}
	var b bytes.Buffer
	for _, seq := range seqs {
		b.WriteString(seq.String())
	}
	s = b.String()
	return s[:len(s)-1]
}

// Write writes sequences in FASTA format.
func (seqs Sequences) Write(w io.Writer) error {
	for _, seq := range seqs {
		if _, err := io.WriteString(w, seq.String()); err != nil {
			return err
		}
	}
	return nil
}
