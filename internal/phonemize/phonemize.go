// Package phonemize orchestrates text-to-phoneme transcription: it
// hides punctuation from the engine, splits the input into chunks for
// parallel workers, and reassembles the results in input order.
package phonemize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chaz8081/phonemize/internal/backend"
	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/punctuation"
	"github.com/chaz8081/phonemize/internal/separator"
)

// Phonemizer converts batches of text lines to phoneme strings through
// an injected backend. It holds no per-call state: every Phonemize call
// is independent and nothing is cached across calls.
type Phonemizer struct {
	factory   backend.Factory
	sep       separator.Separator
	njobs     int
	preserve  bool
	punct     *punctuation.Processor
	keepEmpty bool
	strip     bool
	timeout   time.Duration
	log       *slog.Logger
}

type options struct {
	sep       separator.Separator
	njobs     int
	preserve  bool
	marks     string
	pattern   string
	keepEmpty bool
	strip     bool
	timeout   time.Duration
	log       *slog.Logger
}

// Option configures a Phonemizer.
type Option func(*options)

// WithSeparator sets the token delimiters.
func WithSeparator(sep separator.Separator) Option {
	return func(o *options) { o.sep = sep }
}

// WithNJobs sets the number of parallel workers.
func WithNJobs(n int) Option {
	return func(o *options) { o.njobs = n }
}

// WithPreservePunctuation enables punctuation restoration.
func WithPreservePunctuation(preserve bool) Option {
	return func(o *options) { o.preserve = preserve }
}

// WithMarks sets the literal punctuation mark set.
func WithMarks(marks string) Option {
	return func(o *options) { o.marks = marks }
}

// WithMarksPattern sets a regular expression matching punctuation runs,
// overriding WithMarks.
func WithMarksPattern(expr string) Option {
	return func(o *options) { o.pattern = expr }
}

// WithPreserveEmptyLines controls whether empty input lines appear as
// empty output lines (the default) or are dropped from the output, in
// which case the output has fewer entries than the input.
func WithPreserveEmptyLines(keep bool) Option {
	return func(o *options) { o.keepEmpty = keep }
}

// WithStrip trims the trailing word separator from each output line.
func WithStrip(strip bool) Option {
	return func(o *options) { o.strip = strip }
}

// WithTimeout bounds a whole Phonemize call. On expiry workers are
// cancelled and a TimeoutError is returned with no partial output.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used for progress messages.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// FromConfig translates a validated config into options.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithSeparator(separator.Separator{
			Word:     cfg.Separator.Word,
			Syllable: cfg.Separator.Syllable,
			Phone:    cfg.Separator.Phone,
		}),
		WithNJobs(cfg.NJobs),
		WithPreservePunctuation(cfg.Punctuation.Preserve),
		WithPreserveEmptyLines(cfg.EmptyLines),
		WithStrip(cfg.Strip),
		WithTimeout(time.Duration(cfg.Timeout)),
	}
	if cfg.Punctuation.Marks != "" {
		opts = append(opts, WithMarks(cfg.Punctuation.Marks))
	}
	if cfg.Punctuation.Pattern != "" {
		opts = append(opts, WithMarksPattern(cfg.Punctuation.Pattern))
	}
	return opts
}

// New builds a Phonemizer around a backend factory. All configuration
// problems surface here as a ConfigError, before any line is processed.
func New(factory backend.Factory, opts ...Option) (*Phonemizer, error) {
	if factory == nil {
		return nil, &ConfigError{Err: fmt.Errorf("no backend factory")}
	}

	o := options{
		sep:       separator.Default(),
		njobs:     1,
		marks:     punctuation.DefaultMarks,
		keepEmpty: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.sep.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if o.njobs < 1 {
		return nil, &ConfigError{Err: fmt.Errorf("njobs must be >= 1, got %d", o.njobs)}
	}
	if o.timeout < 0 {
		return nil, &ConfigError{Err: fmt.Errorf("timeout must not be negative, got %s", o.timeout)}
	}

	var punct *punctuation.Processor
	var err error
	if o.pattern != "" {
		punct, err = punctuation.NewPattern(o.pattern)
	} else {
		punct, err = punctuation.New(o.marks)
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	log := o.log
	if log == nil {
		log = slog.Default()
	}

	return &Phonemizer{
		factory:   factory,
		sep:       o.sep,
		njobs:     o.njobs,
		preserve:  o.preserve,
		punct:     punct,
		keepEmpty: o.keepEmpty,
		strip:     o.strip,
		timeout:   o.timeout,
		log:       log,
	}, nil
}

// Phonemize transcribes lines and returns one output per input line,
// in input order regardless of worker completion order. When
// punctuation preservation is on and the backend cannot keep
// punctuation itself, marks are stripped before transcription and
// restored afterwards by position.
func (p *Phonemizer) Phonemize(ctx context.Context, lines []string) ([]string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	input := lines
	if !p.keepEmpty {
		input = make([]string, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				input = append(input, line)
			}
		}
	}
	if len(input) == 0 {
		return []string{}, nil
	}

	// The backend declares whether it can keep punctuation on its own;
	// only engines that strip it need the processor in front.
	restorable := p.preserve && !p.factory.Capabilities().Has(backend.CapPunctuation)

	work := input
	var records [][]punctuation.Record
	switch {
	case restorable:
		work, records = p.punct.StripAll(input)
	case !p.preserve:
		// Engines disagree on what they do with punctuation; removing
		// it up front makes the non-preserving path uniform.
		work = make([]string, len(input))
		for i, line := range input {
			work[i] = p.punct.Remove(line)
		}
	}

	out, err := p.run(ctx, work)
	if err != nil {
		return nil, err
	}

	if restorable {
		out = punctuation.RestoreAll(out, records, p.sep)
	}
	return out, nil
}

// run chunks the lines, transcribes each chunk on its own worker with
// its own backend instance, and merges results strictly by chunk index.
// The first failing chunk cancels the rest; cancellation of an in-flight
// engine call is best-effort.
func (p *Phonemizer) run(ctx context.Context, lines []string) ([]string, error) {
	chunks := chunkLines(lines, p.njobs)
	results := make([][]string, len(chunks))

	p.log.Debug("transcribing batch",
		"backend", p.factory.Name(),
		"version", p.factory.Version(),
		"lines", len(lines),
		"chunks", len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			be, err := p.factory.Open()
			if err != nil {
				return p.backendErr(c, err)
			}
			defer be.Close()

			got, err := be.Transcribe(gctx, c.lines, p.sep, p.strip)
			if err != nil {
				return p.backendErr(c, err)
			}
			if len(got) != len(c.lines) {
				return p.backendErr(c, fmt.Errorf("returned %d lines, want %d", len(got), len(c.lines)))
			}
			results[c.index] = got
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if p.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: p.timeout}
		}
		return nil, err
	}

	out := make([]string, 0, len(lines))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (p *Phonemizer) backendErr(c chunk, err error) *BackendError {
	return &BackendError{
		Backend: p.factory.Name(),
		Chunk:   c.index,
		First:   c.start,
		Last:    c.start + len(c.lines) - 1,
		Err:     err,
	}
}
