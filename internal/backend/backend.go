// Package backend provides text-to-phoneme engines.
//
// Supported backends:
//   - espeak: espeak-ng (or espeak) subprocess, IPA or SAMPA output (default)
//   - festival: festival subprocess, syllable-level output, en-us only
//   - goruut: in-process pure-Go grapheme-to-phoneme conversion
//   - mapping: user-supplied grapheme-to-phoneme table
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/separator"
)

// Capability describes what an engine can do. The orchestration layer
// queries it instead of inspecting concrete types.
type Capability uint8

const (
	// CapPunctuation: the engine keeps punctuation in its output, so the
	// punctuation processor is not needed in front of it.
	CapPunctuation Capability = 1 << iota
	// CapWordSeparation: the engine reports word boundaries.
	CapWordSeparation
	// CapSyllableSeparation: the engine reports syllable boundaries.
	CapSyllableSeparation
	// CapStressMarks: the engine marks stressed phones.
	CapStressMarks
)

// Has reports whether all capabilities in want are present.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Backend converts text lines to phoneme strings. One instance is
// never shared across concurrent chunks: engines may hold global
// mutable state (a loaded voice), so each worker owns its own instance
// for the lifetime of its chunk and closes it when done.
type Backend interface {
	// Transcribe phonemizes lines, one output per input in the same
	// order, joining tokens per sep. When strip is true no trailing
	// word separator is emitted.
	Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error)
	// Close releases engine resources.
	Close() error
}

// Factory creates per-worker Backend instances and declares the
// engine's capabilities without starting it.
type Factory interface {
	// Name identifies the engine.
	Name() string
	// Version is the engine version, probed at factory construction.
	Version() string
	// Capabilities is the static capability set of the engine.
	Capabilities() Capability
	// Open creates a fresh Backend owned by one worker.
	Open() (Backend, error)
}

// New creates a Factory based on the config backend setting.
func New(cfg *config.Config) (Factory, error) {
	switch cfg.Backend {
	case "espeak", "":
		return NewEspeak(cfg.Language, cfg.Espeak)
	case "festival":
		return NewFestival(cfg.Language, cfg.Festival)
	case "goruut":
		return NewGoruut(cfg.Language)
	case "mapping":
		return NewMapping(cfg.Mapping)
	default:
		return nil, fmt.Errorf("backend: unknown backend %q (supported: espeak, festival, goruut, mapping)", cfg.Backend)
	}
}

// joinWords assembles a transcribed line from per-word phone lists.
// Phones are joined with the phone separator, words with the word
// separator; a trailing word separator is appended unless strip is set.
func joinWords(words [][]string, sep separator.Separator, strip bool) string {
	parts := make([]string, 0, len(words))
	for _, phones := range words {
		parts = append(parts, strings.Join(phones, sep.Phone))
	}
	out := strings.Join(parts, sep.Word)
	if !strip && len(parts) > 0 {
		out += sep.Word
	}
	return out
}
