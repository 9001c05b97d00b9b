package phonemize

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/phonemize/internal/backend"
	"github.com/chaz8081/phonemize/internal/separator"
)

// fakeFactory is an in-memory engine for orchestrator tests. It
// uppercases every word, which keeps word counts intact so punctuation
// restoration is exact.
type fakeFactory struct {
	caps  backend.Capability
	delay time.Duration
	// failLine makes transcription fail on a specific input line.
	failLine string
	// short makes every Transcribe drop its last output line.
	short bool

	mu    sync.Mutex
	opens int
	seen  []string
}

func (f *fakeFactory) Name() string                     { return "fake" }
func (f *fakeFactory) Version() string                  { return "0.0" }
func (f *fakeFactory) Capabilities() backend.Capability { return f.caps }

func (f *fakeFactory) Open() (backend.Backend, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return &fakeBackend{f: f}, nil
}

type fakeBackend struct {
	f *fakeFactory
}

func (b *fakeBackend) Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error) {
	if b.f.delay > 0 {
		select {
		case <-time.After(b.f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		b.f.mu.Lock()
		b.f.seen = append(b.f.seen, line)
		b.f.mu.Unlock()

		if b.f.failLine != "" && line == b.f.failLine {
			return nil, fmt.Errorf("engine choked on %q", line)
		}

		words := strings.Fields(line)
		for i, w := range words {
			words[i] = strings.ToUpper(w)
		}
		s := strings.Join(words, sep.Word)
		if !strip && len(words) > 0 {
			s += sep.Word
		}
		out = append(out, s)
	}
	if b.f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (b *fakeBackend) Close() error { return nil }

func TestPhonemizePreservesPunctuation(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(f, WithPreservePunctuation(true), WithStrip(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := p.Phonemize(context.Background(), []string{"hello, world!"})
	if err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	if len(out) != 1 || out[0] != "HELLO, WORLD!" {
		t.Errorf("Phonemize() = %v, want [HELLO, WORLD!]", out)
	}

	// The engine never saw the punctuation.
	for _, line := range f.seen {
		if strings.ContainsAny(line, ",!") {
			t.Errorf("backend saw punctuation in %q", line)
		}
	}
}

func TestPhonemizeRemovesPunctuationWhenNotPreserving(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(f, WithStrip(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := p.Phonemize(context.Background(), []string{"hello, world!"})
	if err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	if out[0] != "HELLO WORLD" {
		t.Errorf("Phonemize() = %q, want %q", out[0], "HELLO WORLD")
	}
}

func TestPhonemizePassthroughForPunctuationCapableBackend(t *testing.T) {
	f := &fakeFactory{caps: backend.CapPunctuation}
	p, err := New(f, WithPreservePunctuation(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.Phonemize(context.Background(), []string{"hello, world!"}); err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	if len(f.seen) != 1 || f.seen[0] != "hello, world!" {
		t.Errorf("backend saw %v, want the raw line", f.seen)
	}
}

func TestPhonemizeEmptyLines(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(f, WithPreserveEmptyLines(true), WithStrip(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := p.Phonemize(context.Background(), []string{"", "hello"})
	if err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	want := []string{"", "HELLO"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Phonemize() = %v, want %v", out, want)
	}
}

func TestPhonemizeDropsEmptyLines(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(f, WithPreserveEmptyLines(false), WithStrip(true))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out, err := p.Phonemize(context.Background(), []string{"", "hello", "  ", "world"})
	if err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	want := []string{"HELLO", "WORLD"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Phonemize() = %v, want %v", out, want)
	}
}

func TestPhonemizeParallelMatchesSerial(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = fmt.Sprintf("line number %d, with punctuation!", i)
	}

	var outputs [][]string
	for _, njobs := range []int{1, 4, 25, 40} {
		f := &fakeFactory{}
		p, err := New(f,
			WithNJobs(njobs),
			WithPreservePunctuation(true),
		)
		if err != nil {
			t.Fatalf("New(njobs=%d) error = %v", njobs, err)
		}
		out, err := p.Phonemize(context.Background(), lines)
		if err != nil {
			t.Fatalf("Phonemize(njobs=%d) error = %v", njobs, err)
		}
		if len(out) != len(lines) {
			t.Fatalf("Phonemize(njobs=%d) returned %d lines, want %d", njobs, len(out), len(lines))
		}
		outputs = append(outputs, out)
	}

	for i := 1; i < len(outputs); i++ {
		if !reflect.DeepEqual(outputs[0], outputs[i]) {
			t.Errorf("parallel output differs from serial output")
		}
	}
}

func TestPhonemizeWorkerIsolation(t *testing.T) {
	// Each chunk gets its own backend instance.
	f := &fakeFactory{}
	p, err := New(f, WithNJobs(4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := p.Phonemize(context.Background(), numberedLines(10)); err != nil {
		t.Fatalf("Phonemize() error = %v", err)
	}
	if f.opens != 4 {
		t.Errorf("backend opened %d times, want 4", f.opens)
	}
}

func TestPhonemizeStrip(t *testing.T) {
	f := &fakeFactory{}

	for _, tt := range []struct {
		strip bool
		want  string
	}{
		{strip: true, want: "HELLO WORLD"},
		{strip: false, want: "HELLO WORLD "},
	} {
		p, err := New(f, WithStrip(tt.strip))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		out, err := p.Phonemize(context.Background(), []string{"hello world"})
		if err != nil {
			t.Fatalf("Phonemize() error = %v", err)
		}
		if out[0] != tt.want {
			t.Errorf("strip=%v: Phonemize() = %q, want %q", tt.strip, out[0], tt.want)
		}
	}
}

func TestNewRejectsDuplicateSeparators(t *testing.T) {
	_, err := New(&fakeFactory{}, WithSeparator(separator.Separator{Word: " ", Phone: " "}))
	if err == nil {
		t.Fatal("New() expected error for duplicate separators")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %T, want *ConfigError", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "zero_njobs", opts: []Option{WithNJobs(0)}},
		{name: "negative_timeout", opts: []Option{WithTimeout(-time.Second)}},
		{name: "empty_marks", opts: []Option{WithMarks("")}},
		{name: "bad_pattern", opts: []Option{WithMarksPattern("[unclosed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeFactory{}, tt.opts...)
			if err == nil {
				t.Fatal("New() expected error, got none")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error = %T, want *ConfigError", err)
			}
		})
	}
}

func TestNewNilFactory(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("New(nil) expected error")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %T, want *ConfigError", err)
	}
}

func TestPhonemizeBackendFailure(t *testing.T) {
	f := &fakeFactory{failLine: "line 7"}
	p, err := New(f, WithNJobs(4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Phonemize(context.Background(), numberedLines(10))
	if err == nil {
		t.Fatal("Phonemize() expected error")
	}
	var beErr *BackendError
	if !errors.As(err, &beErr) {
		t.Fatalf("error = %T, want *BackendError", err)
	}
	// "line 7" falls in the third chunk of a 3,3,2,2 split.
	if beErr.Chunk != 2 {
		t.Errorf("Chunk = %d, want 2", beErr.Chunk)
	}
	if beErr.First != 6 || beErr.Last != 7 {
		t.Errorf("line range = %d-%d, want 6-7", beErr.First, beErr.Last)
	}
}

func TestPhonemizeWrongLineCount(t *testing.T) {
	f := &fakeFactory{short: true}
	p, err := New(f)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Phonemize(context.Background(), []string{"a", "b"})
	var beErr *BackendError
	if !errors.As(err, &beErr) {
		t.Fatalf("error = %T (%v), want *BackendError", err, err)
	}
}

func TestPhonemizeTimeout(t *testing.T) {
	f := &fakeFactory{delay: time.Second}
	p, err := New(f, WithNJobs(2), WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	_, err = p.Phonemize(context.Background(), numberedLines(4))
	if err == nil {
		t.Fatal("Phonemize() expected timeout error")
	}
	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("error = %T (%v), want *TimeoutError", err, err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout took %s, workers were not cancelled", elapsed)
	}
}

func TestPhonemizeEmptyInput(t *testing.T) {
	p, err := New(&fakeFactory{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := p.Phonemize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Phonemize(nil) error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Phonemize(nil) = %v, want empty", out)
	}
}
