// Package fasta validates nucleotide FASTA files before they are uploaded.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrExtension = errors.New("unsupported file extension")
	ErrFormat    = errors.New("malformed FASTA")
)

// Extensions accepted for FASTA files. A name without extension is also accepted.
func Extensions() []string {
	return []string{".fasta", ".fa", ".fna", ".fas", ".fsa", ".ffn"}
}

// Summary of a FASTA content.
type Summary struct {
	// number of records (headers)
	Records int

	// total number of residues
	Length int
}

// CheckName reports whether name has an acceptable extension.
func CheckName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil
	}
	for _, e := range Extensions() {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf(
		"%w: %q (allowed: %s)", ErrExtension, ext, strings.Join(Extensions(), ", "),
	)
}

// Validate checks name and reads r whole, returning its content when it is valid FASTA.
func Validate(name string, r io.Reader) ([]byte, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if _, err := Inspect(content); err != nil {
		return nil, err
	}
	return content, nil
}

// Inspect parses content as nucleotide FASTA.
//
// Content should start with a '>' header, and every record should have
// at least one sequence line of IUPAC nucleotide codes.
func Inspect(content []byte) (Summary, error) {
	summary := Summary{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineno := 0
	header := 0
	residues := 0
	for scanner.Scan() {
		lineno += 1
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if 0 < summary.Records && residues == 0 {
				return Summary{}, fmt.Errorf("%w: record at line %d has no sequence", ErrFormat, header)
			}
			summary.Records += 1
			header = lineno
			residues = 0
			continue
		}

		if summary.Records == 0 {
			return Summary{}, fmt.Errorf("%w: should start with '>' header (line %d)", ErrFormat, lineno)
		}
		for i, c := range line {
			if !isNucleotide(c) {
				return Summary{}, fmt.Errorf(
					"%w: unexpected character %q at line %d, column %d", ErrFormat, c, lineno, i+1,
				)
			}
		}
		residues += len(line)
		summary.Length += len(line)
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	if summary.Records == 0 {
		return Summary{}, fmt.Errorf("%w: no records", ErrFormat)
	}
	if residues == 0 {
		return Summary{}, fmt.Errorf("%w: record at line %d has no sequence", ErrFormat, header)
	}
	return summary, nil
}

func isNucleotide(c rune) bool {
	switch c {
	case 'A', 'C', 'G', 'T', 'U', 'R', 'Y', 'S', 'W', 'K', 'M', 'B', 'D', 'H', 'V', 'N',
		'a', 'c', 'g', 't', 'u', 'r', 'y', 's', 'w', 'k', 'm', 'b', 'd', 'h', 'v', 'n',
		'-', '.', '*':
		return true
	}
	return false
}
