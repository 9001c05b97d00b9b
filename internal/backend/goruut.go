package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"

	"github.com/chaz8081/phonemize/internal/separator"
)

// goruutLanguages maps the language codes used by the other backends to
// the language names goruut expects. Codes not listed here are passed
// through unchanged, so goruut's own names also work directly.
var goruutLanguages = map[string]string{
	"en-us": "English",
	"en-gb": "English",
	"en":    "English",
	"de":    "German",
	"fr-fr": "French",
	"fr":    "French",
	"es":    "Spanish",
	"it":    "Italian",
	"pt":    "Portuguese",
	"nl":    "Dutch",
	"pl":    "Polish",
	"cs":    "Czech",
	"ru":    "Russian",
	"uk":    "Ukrainian",
	"ja":    "Japanese",
	"zh":    "Chinese",
}

// GoruutFactory creates in-process goruut backends. No external engine
// is needed: the grapheme-to-phoneme models ship with the library.
type GoruutFactory struct {
	language string
}

// NewGoruut resolves the language name for goruut.
func NewGoruut(language string) (*GoruutFactory, error) {
	name, ok := goruutLanguages[strings.ToLower(language)]
	if !ok {
		name = language
	}
	return &GoruutFactory{language: name}, nil
}

// Name identifies the engine.
func (f *GoruutFactory) Name() string { return "goruut" }

// Version of the embedded engine.
func (f *GoruutFactory) Version() string { return "embedded" }

// Capabilities of the engine.
func (f *GoruutFactory) Capabilities() Capability { return CapWordSeparation }

// Open creates a fresh phonemizer instance for one worker. Instances
// are not shared across workers.
func (f *GoruutFactory) Open() (Backend, error) {
	return &goruutBackend{
		p:        lib.NewPhonemizer(nil),
		language: f.language,
	}, nil
}

type goruutBackend struct {
	p        *lib.Phonemizer
	language string
}

// Transcribe phonemizes lines with the in-process engine.
func (b *goruutBackend) Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}

		resp := b.p.Sentence(requests.PhonemizeSentence{
			Language: b.language,
			Sentence: line,
		})
		if len(resp.Words) == 0 {
			return nil, fmt.Errorf("backend: goruut returned no words for %q", line)
		}

		words := make([][]string, 0, len(resp.Words))
		for _, w := range resp.Words {
			if w.Phonetic == "" {
				continue
			}
			// goruut reports one IPA string per word; each rune is a
			// phone for separator purposes.
			phones := make([]string, 0, len(w.Phonetic))
			for _, r := range w.Phonetic {
				phones = append(phones, string(r))
			}
			words = append(words, phones)
		}
		out = append(out, joinWords(words, sep, strip))
	}
	return out, nil
}

// Close releases backend resources.
func (b *goruutBackend) Close() error { return nil }
