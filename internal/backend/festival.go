package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/separator"
)

// festivalScript drives one festival batch run. Each input line is a
// double-quoted Scheme string in the data file; the script synthesizes
// every line and prints its syllable-structure tree, one tree per line.
const festivalScript = `(define (phonemize line)
  (let ((utt (utt.synth (eval (list 'Utterance 'Text line)))))
    (print (utt.relation_tree utt 'SylStructure))))
(mapcar phonemize (load "%s" t))
`

// FestivalFactory creates festival subprocess backends. Festival is
// the only engine here that reports syllable boundaries; it supports
// US English only.
type FestivalFactory struct {
	exe     string
	version string
}

// NewFestival locates the festival executable and probes its version.
func NewFestival(language string, cfg config.FestivalConfig) (*FestivalFactory, error) {
	if language != "en-us" {
		return nil, fmt.Errorf("backend: festival supports only en-us, got %q", language)
	}

	exe := cfg.Path
	if exe == "" {
		if p, err := exec.LookPath("festival"); err == nil {
			exe = p
		}
	}
	if exe == "" {
		return nil, fmt.Errorf("backend: festival not found in PATH (install festival or set festival.path)")
	}

	out, err := exec.Command(exe, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("backend: probing %s: %w", exe, err)
	}
	m := versionRe.FindString(string(out))
	if m == "" {
		return nil, fmt.Errorf("backend: cannot extract festival version from %q", strings.TrimSpace(string(out)))
	}

	return &FestivalFactory{exe: exe, version: m}, nil
}

// Name identifies the engine.
func (f *FestivalFactory) Name() string { return "festival" }

// Version is the probed engine version.
func (f *FestivalFactory) Version() string { return f.version }

// Capabilities of the engine.
func (f *FestivalFactory) Capabilities() Capability {
	return CapWordSeparation | CapSyllableSeparation
}

// Open returns a Backend bound to one worker.
func (f *FestivalFactory) Open() (Backend, error) {
	return &festivalBackend{f: f}, nil
}

type festivalBackend struct {
	f *FestivalFactory
}

// Transcribe phonemizes a whole chunk in a single festival run.
// Festival startup is the dominant cost, so the batch script covers
// every line of the chunk at once.
func (b *festivalBackend) Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error) {
	// Lines that clean to nothing never reach festival; their output
	// slot stays empty.
	var sent []int
	var quoted []string
	for i, line := range lines {
		clean := festivalClean(line)
		if clean == "" {
			continue
		}
		sent = append(sent, i)
		quoted = append(quoted, `"`+clean+`"`)
	}

	out := make([]string, len(lines))
	if len(sent) == 0 {
		return out, nil
	}

	raw, err := b.run(ctx, strings.Join(quoted, "\n"))
	if err != nil {
		return nil, err
	}

	var trees []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		trees = append(trees, line)
	}
	if len(trees) != len(sent) {
		return nil, fmt.Errorf("backend: festival returned %d utterances, want %d", len(trees), len(sent))
	}

	for k, tree := range trees {
		if tree == "(nil nil nil)" {
			continue
		}
		phonemized, err := festivalLine(tree, sep, strip)
		if err != nil {
			return nil, fmt.Errorf("backend: festival output: %w", err)
		}
		out[sent[k]] = phonemized
	}
	return out, nil
}

// Close releases backend resources. Nothing is held between calls.
func (b *festivalBackend) Close() error { return nil }

// run writes the data and script temp files and executes one festival
// batch, returning raw stdout.
func (b *festivalBackend) run(ctx context.Context, data string) (string, error) {
	dataFile, err := os.CreateTemp("", "phonemize-data-*.txt")
	if err != nil {
		return "", fmt.Errorf("backend: festival temp file: %w", err)
	}
	defer os.Remove(dataFile.Name())
	if _, err := dataFile.WriteString(data + "\n"); err != nil {
		dataFile.Close()
		return "", fmt.Errorf("backend: festival temp file: %w", err)
	}
	dataFile.Close()

	scmFile, err := os.CreateTemp("", "phonemize-script-*.scm")
	if err != nil {
		return "", fmt.Errorf("backend: festival temp file: %w", err)
	}
	defer os.Remove(scmFile.Name())
	if _, err := fmt.Fprintf(scmFile, festivalScript, dataFile.Name()); err != nil {
		scmFile.Close()
		return "", fmt.Errorf("backend: festival temp file: %w", err)
	}
	scmFile.Close()

	cmd := exec.CommandContext(ctx, b.f.exe, "-b", scmFile.Name())
	raw, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("backend: festival: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("backend: festival: %w", err)
	}
	return string(raw), nil
}

// festivalClean removes characters reserved by the Scheme reader.
// Double quotes delimit utterances and parentheses are syntax, so they
// cannot survive into the data file.
func festivalClean(line string) string {
	if line != "" && strings.Trim(line, "'") == "" {
		// A line of only apostrophes crashes festival.
		return ""
	}
	r := strings.NewReplacer(`"`, "", "(", "", ")", "")
	return strings.TrimSpace(r.Replace(line))
}

// festivalLine converts one syllable-structure tree into a phonemized
// line honoring the separator at all three levels.
func festivalLine(tree string, sep separator.Separator, strip bool) (string, error) {
	expr, err := parseSexpr(tree)
	if err != nil {
		return "", err
	}

	var words []string
	for _, word := range expr.list {
		if w := festivalWord(word, sep, strip); w != "" {
			words = append(words, w)
		}
	}
	out := strings.Join(words, sep.Word)
	if !strip && out != "" {
		out += sep.Word
	}
	return out, nil
}

// festivalWord joins a word node's syllables.
func festivalWord(word sexpr, sep separator.Separator, strip bool) string {
	if !word.isList() || len(word.list) < 2 {
		return ""
	}
	var sylls []string
	for _, syll := range word.list[1:] {
		sylls = append(sylls, festivalSyll(syll, sep, strip))
	}
	out := strings.Join(sylls, sep.Syllable)
	if !strip {
		out += sep.Syllable
	}
	return out
}

// festivalSyll joins a syllable node's phones. The phone name sits at
// the head of each phone node's info list, double-quoted.
func festivalSyll(syll sexpr, sep separator.Separator, strip bool) string {
	var phones []string
	if !syll.isList() {
		return ""
	}
	for _, ph := range syll.list[1:] {
		if !ph.isList() || len(ph.list) == 0 || len(ph.list[0].list) == 0 {
			continue
		}
		name := strings.Trim(ph.list[0].list[0].atom, `"`)
		if name != "" {
			phones = append(phones, name)
		}
	}
	out := strings.Join(phones, sep.Phone)
	if !strip {
		out += sep.Phone
	}
	return out
}
