// Package punctuation hides punctuation from phonemization backends and
// restores it afterwards.
//
// Speech engines disagree on punctuation: espeak and festival silently
// drop it, a grapheme mapping chokes on it. The Processor removes every
// punctuation run before a line reaches the backend, recording where each
// run sat relative to the words around it, and re-inserts the marks into
// the transcribed output at the same relative positions.
package punctuation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chaz8081/phonemize/internal/separator"
)

// DefaultMarks are the sentence-level marks handled when the caller does
// not supply its own set.
const DefaultMarks = `;:,.!?¡¿—…"«»“”`

// Position classifies where a punctuation run sat in its line.
type Position int

const (
	// Interior runs have words on both sides.
	Interior Position = iota
	// Leading runs open the line.
	Leading
	// Trailing runs close the line.
	Trailing
	// Alone means the whole line was punctuation.
	Alone
)

// Record describes one removed punctuation run, with enough context to
// put it back. Token is the index of the word token preceding the run
// (0 for a leading run). SpaceBefore and SpaceAfter remember whether
// the run abutted its neighbouring words in the source: a mark that
// touched a word is re-attached to it with no separator in between.
type Record struct {
	Mark        string
	Pos         Position
	Token       int
	SpaceBefore bool
	SpaceAfter  bool
}

// Processor removes and restores punctuation according to a configured
// mark set or pattern.
type Processor struct {
	marks string
	re    *regexp.Regexp
}

// New builds a Processor from a set of literal mark characters. Each
// character in marks is an independent mark; duplicates are ignored.
func New(marks string) (*Processor, error) {
	if marks == "" {
		return nil, fmt.Errorf("punctuation: empty mark set")
	}

	// One expression catching whole runs: marks and any whitespace
	// around or between them collapse into a single match.
	re, err := regexp.Compile(`(\s*[` + escapeClass(marks) + `]+\s*)+`)
	if err != nil {
		return nil, fmt.Errorf("punctuation: invalid mark set %q: %w", marks, err)
	}
	return &Processor{marks: marks, re: re}, nil
}

// NewPattern builds a Processor from a regular expression matching
// punctuation runs. The expression may match variable-length spans.
func NewPattern(expr string) (*Processor, error) {
	if expr == "" {
		return nil, fmt.Errorf("punctuation: empty pattern")
	}
	re, err := regexp.Compile(`(\s*(?:` + expr + `)\s*)+`)
	if err != nil {
		return nil, fmt.Errorf("punctuation: invalid pattern %q: %w", expr, err)
	}
	return &Processor{re: re}, nil
}

// Marks returns the configured literal mark set, empty for a
// pattern-based Processor.
func (p *Processor) Marks() string { return p.marks }

// Remove replaces every punctuation run in line with a single space and
// trims the result. This is the non-preserving path.
func (p *Processor) Remove(line string) string {
	return strings.TrimSpace(p.re.ReplaceAllString(line, " "))
}

// Strip removes every punctuation run from line and returns the cleaned
// text plus the records needed to restore the runs. A line made only of
// punctuation cleans to the empty string; the empty clean line must
// still be carried through transcription, not dropped.
func (p *Processor) Strip(line string) (string, []Record) {
	locs := p.re.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return collapse(line), nil
	}

	if len(locs) == 1 && locs[0][0] == 0 && locs[0][1] == len(line) {
		return "", []Record{{Mark: strings.TrimSpace(line), Pos: Alone}}
	}

	records := make([]Record, 0, len(locs))
	var clean strings.Builder
	prev := 0
	for i, loc := range locs {
		clean.WriteString(line[prev:loc[0]])

		raw := line[loc[0]:loc[1]]
		rec := Record{
			Mark:        strings.TrimSpace(raw),
			SpaceBefore: startsWithSpace(raw),
			SpaceAfter:  endsWithSpace(raw),
		}
		switch {
		case i == 0 && loc[0] == 0:
			rec.Pos = Leading
		case i == len(locs)-1 && loc[1] == len(line):
			rec.Pos = Trailing
		default:
			rec.Pos = Interior
		}

		if n := len(strings.Fields(clean.String())); n > 0 {
			rec.Token = n - 1
		}
		records = append(records, rec)

		clean.WriteByte(' ')
		prev = loc[1]
	}
	clean.WriteString(line[prev:])

	return collapse(clean.String()), records
}

// StripAll maps Strip over lines. Lines that clean to the empty string
// are kept as empty strings so they round-trip to empty transcriptions.
func (p *Processor) StripAll(lines []string) ([]string, [][]Record) {
	clean := make([]string, len(lines))
	records := make([][]Record, len(lines))
	for i, line := range lines {
		clean[i], records[i] = p.Strip(line)
	}
	return clean, records
}

// Restore re-inserts removed punctuation into a transcribed line. The
// line is tokenized on the word separator (one synthetic token when no
// word separator is defined) and each record's mark is attached to the
// token at its recorded position. When the backend merged or dropped
// words the recorded position may fall past the end; the mark is then
// appended to the final token. Misalignment never fails: it is a
// data-quality condition, not an error.
func Restore(transcribed string, records []Record, sep separator.Separator) string {
	if len(records) == 0 {
		return transcribed
	}

	// A non-stripped transcription ends with a word separator; lift it
	// off so it does not read as an empty final token, and put it back
	// after the marks are placed.
	trailing := false
	var tokens []string
	if sep.HasWord() && transcribed != "" {
		if strings.HasSuffix(transcribed, sep.Word) {
			trailing = true
			transcribed = strings.TrimSuffix(transcribed, sep.Word)
		}
		tokens = strings.Split(transcribed, sep.Word)
	} else {
		tokens = []string{transcribed}
	}

	// Marks are attached as prefixes and suffixes of the tokens; glue
	// suppresses the word separator after a token when the mark touched
	// both of its neighbours in the source ("a.b" must not become "a. b").
	last := len(tokens) - 1
	pre := make([]string, len(tokens))
	post := make([]string, len(tokens))
	glue := make([]bool, len(tokens))

	for _, rec := range records {
		switch rec.Pos {
		case Leading:
			pre[0] += rec.Mark
			if rec.SpaceAfter {
				pre[0] += sep.Word
			}
		case Trailing, Alone:
			if rec.SpaceBefore {
				post[last] += sep.Word
			}
			post[last] += rec.Mark
		default: // Interior
			switch {
			case rec.SpaceBefore && !rec.SpaceAfter && rec.Token+1 <= last:
				// Opening mark hugging the following word.
				pre[rec.Token+1] = rec.Mark + pre[rec.Token+1]
			case rec.Token < last:
				if rec.SpaceBefore {
					post[rec.Token] += sep.Word
				}
				post[rec.Token] += rec.Mark
				if !rec.SpaceAfter {
					glue[rec.Token] = true
				}
			default:
				// The backend merged words past this position; best
				// effort is to carry the mark on the final token.
				post[last] += rec.Mark
			}
		}
	}

	var b strings.Builder
	for i, tok := range tokens {
		b.WriteString(pre[i])
		b.WriteString(tok)
		b.WriteString(post[i])
		if i < last && !glue[i] {
			b.WriteString(sep.Word)
		}
	}
	if trailing {
		b.WriteString(sep.Word)
	}
	return b.String()
}

// RestoreAll maps Restore over transcribed lines and their records.
// The two slices must be the same length.
func RestoreAll(transcribed []string, records [][]Record, sep separator.Separator) []string {
	out := make([]string, len(transcribed))
	for i, line := range transcribed {
		out[i] = Restore(line, records[i], sep)
	}
	return out
}

// collapse squeezes runs of whitespace left by mark removal into single
// spaces and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}

func endsWithSpace(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}

// escapeClass escapes characters that are special inside a regexp
// character class.
func escapeClass(marks string) string {
	var b strings.Builder
	for _, r := range marks {
		switch r {
		case '\\', ']', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
