package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/separator"
)

// versionRe extracts the version number from espeak's banner line,
// e.g. "eSpeak NG text-to-speech: 1.51  Data at: /usr/share/...".
var versionRe = regexp.MustCompile(`([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)

// langFlagRe matches the language-switch flags espeak inserts when the
// input mixes languages, e.g. "(en)". They are noise in the output.
var langFlagRe = regexp.MustCompile(`\([a-z]{2,}(?:-[a-z0-9]+)*\)`)

// EspeakFactory creates espeak subprocess backends. The engine strips
// punctuation itself, so CapPunctuation is never advertised and the
// punctuation processor must run in front of it.
type EspeakFactory struct {
	exe     string
	voice   string
	sampa   bool
	version string
	ng      bool
}

// NewEspeak locates the espeak executable and probes its version. The
// SAMPA variant needs espeak-ng.
func NewEspeak(language string, cfg config.EspeakConfig) (*EspeakFactory, error) {
	exe := cfg.Path
	if exe == "" {
		for _, name := range []string{"espeak-ng", "espeak"} {
			if p, err := exec.LookPath(name); err == nil {
				exe = p
				break
			}
		}
	}
	if exe == "" {
		return nil, fmt.Errorf("backend: espeak-ng not found in PATH (install espeak-ng or set espeak.path)")
	}

	out, err := exec.Command(exe, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("backend: probing %s: %w", exe, err)
	}
	banner := strings.TrimSpace(string(out))
	m := versionRe.FindString(banner)
	if m == "" {
		return nil, fmt.Errorf("backend: cannot extract espeak version from %q", banner)
	}
	ng := strings.Contains(banner, "eSpeak NG")

	if cfg.SAMPA && !ng {
		return nil, fmt.Errorf("backend: SAMPA output needs espeak-ng, found espeak %s", m)
	}

	return &EspeakFactory{
		exe:     exe,
		voice:   language,
		sampa:   cfg.SAMPA,
		version: m,
		ng:      ng,
	}, nil
}

// Name identifies the engine.
func (f *EspeakFactory) Name() string { return "espeak" }

// Version is the probed engine version.
func (f *EspeakFactory) Version() string { return f.version }

// Capabilities of the engine. In SAMPA mode only the phone level is
// available.
func (f *EspeakFactory) Capabilities() Capability {
	if f.sampa {
		return 0
	}
	return CapWordSeparation | CapStressMarks
}

// Open returns a Backend bound to one worker. The subprocess model
// keeps no state between calls, so Open never fails here; failures
// surface from Transcribe.
func (f *EspeakFactory) Open() (Backend, error) {
	return &espeakBackend{f: f}, nil
}

// Voices lists the voices espeak supports, as a map from language code
// to voice name.
func (f *EspeakFactory) Voices() (map[string]string, error) {
	out, err := exec.Command(f.exe, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("backend: listing espeak voices: %w", err)
	}

	voices := make(map[string]string)
	lines := strings.Split(string(out), "\n")
	// First line is the column header.
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices[fields[1]] = strings.ReplaceAll(fields[3], "_", " ")
	}
	return voices, nil
}

type espeakBackend struct {
	f *EspeakFactory
}

// Transcribe runs espeak once per line, reading the line from stdin.
// Espeak loads its voice data on every start, which is why the caller
// hands over whole chunks rather than calling per line from a loop
// that re-creates the backend.
func (b *espeakBackend) Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}

		args := []string{"-q", "-v", b.f.voice, "--sep=_"}
		if b.f.sampa {
			args = append(args, "-x")
		} else {
			args = append(args, "--ipa")
		}

		cmd := exec.CommandContext(ctx, b.f.exe, args...)
		cmd.Stdin = strings.NewReader(line)
		raw, err := cmd.Output()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
				return nil, fmt.Errorf("backend: espeak: %s", strings.TrimSpace(string(exitErr.Stderr)))
			}
			return nil, fmt.Errorf("backend: espeak: %w", err)
		}

		out = append(out, reflowEspeak(string(raw), sep, strip))
	}
	return out, nil
}

// Close releases backend resources. Nothing is held between calls.
func (b *espeakBackend) Close() error { return nil }

// reflowEspeak converts espeak's raw output (words separated by spaces,
// phones by underscores) into the caller's separator scheme.
func reflowEspeak(raw string, sep separator.Separator, strip bool) string {
	raw = langFlagRe.ReplaceAllString(raw, "")

	var words [][]string
	for _, w := range strings.Fields(raw) {
		var phones []string
		for _, ph := range strings.Split(w, "_") {
			if ph != "" {
				phones = append(phones, ph)
			}
		}
		if len(phones) > 0 {
			words = append(words, phones)
		}
	}
	return joinWords(words, sep, strip)
}
