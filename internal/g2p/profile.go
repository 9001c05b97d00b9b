// Package g2p loads grapheme-to-phoneme profiles for the mapping
// backend.
//
// A profile is a plain text file with one grapheme/phoneme pair per
// line, separated by whitespace:
//
//	ch	tʃ
//	a	ʌ
//
// Longer graphemes are matched first when tokenizing a word.
package g2p

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"
)

// Profile is an immutable grapheme-to-phoneme table.
type Profile struct {
	mapping   map[string]string
	graphemes []string // sorted by length, longest first
}

// Load reads a profile from a two-column file. Blank lines and lines
// starting with '#' are skipped; any other malformed line is an error
// reported with its line number.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("g2p: open profile: %w", err)
	}
	defer f.Close()

	mapping := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf(
				"g2p: %s:%d: expected 2 columns, got %d", path, lineno, len(fields))
		}
		mapping[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("g2p: read profile: %w", err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("g2p: profile %s is empty", path)
	}

	return New(mapping), nil
}

// New builds a Profile from an in-memory mapping.
func New(mapping map[string]string) *Profile {
	graphemes := make([]string, 0, len(mapping))
	for g := range mapping {
		graphemes = append(graphemes, g)
	}
	sort.Slice(graphemes, func(i, j int) bool {
		if len(graphemes[i]) != len(graphemes[j]) {
			return len(graphemes[i]) > len(graphemes[j])
		}
		return graphemes[i] < graphemes[j]
	})
	m := make(map[string]string, len(mapping))
	for g, p := range mapping {
		m[g] = p
	}
	return &Profile{mapping: m, graphemes: graphemes}
}

// Len returns the number of grapheme entries.
func (p *Profile) Len() int { return len(p.mapping) }

// Tokenize converts a word to its phones using longest-match scanning.
// When strict is true an unmatched grapheme is an error; otherwise it
// is skipped.
func (p *Profile) Tokenize(word string, strict bool) ([]string, error) {
	var phones []string
	for i := 0; i < len(word); {
		matched := ""
		for _, g := range p.graphemes {
			if strings.HasPrefix(word[i:], g) {
				matched = g
				break
			}
		}
		if matched == "" {
			if strict {
				return nil, fmt.Errorf("g2p: unknown grapheme at %q in word %q", word[i:], word)
			}
			_, size := utf8.DecodeRuneInString(word[i:])
			i += size
			continue
		}
		phones = append(phones, p.mapping[matched])
		i += len(matched)
	}
	return phones, nil
}
