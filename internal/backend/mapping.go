package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/g2p"
	"github.com/chaz8081/phonemize/internal/separator"
)

// MappingFactory creates backends that phonemize through a
// user-supplied grapheme-to-phoneme table. The profile is parsed once
// at factory construction so a broken file fails fast, before any
// worker starts.
type MappingFactory struct {
	profile *g2p.Profile
	strict  bool
	path    string
}

// NewMapping loads the g2p profile named by the config. A profile given
// as an http(s) URL is downloaded into the user cache first and reused
// on later runs.
func NewMapping(cfg config.MappingConfig) (*MappingFactory, error) {
	path := cfg.Profile
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("backend: locating cache dir: %w", err)
		}
		dest := filepath.Join(cache, "phonemize", filepath.Base(path))
		if err := g2p.Download(path, dest); err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		path = dest
	}

	profile, err := g2p.Load(path)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return &MappingFactory{
		profile: profile,
		strict:  cfg.Unknown != "ignore",
		path:    path,
	}, nil
}

// Name identifies the engine.
func (f *MappingFactory) Name() string { return "mapping" }

// Version reports the profile the factory was built from.
func (f *MappingFactory) Version() string {
	return fmt.Sprintf("%d entries", f.profile.Len())
}

// Capabilities of the engine.
func (f *MappingFactory) Capabilities() Capability { return CapWordSeparation }

// Open returns a Backend bound to one worker. The profile itself is
// immutable and safe to share.
func (f *MappingFactory) Open() (Backend, error) {
	return &mappingBackend{f: f}, nil
}

type mappingBackend struct {
	f *MappingFactory
}

// Transcribe phonemizes lines word by word through the table.
func (b *mappingBackend) Transcribe(ctx context.Context, lines []string, sep separator.Separator, strip bool) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var words [][]string
		for _, word := range strings.Fields(line) {
			phones, err := b.f.profile.Tokenize(strings.ToLower(word), b.f.strict)
			if err != nil {
				return nil, fmt.Errorf("backend: mapping: %w", err)
			}
			if len(phones) > 0 {
				words = append(words, phones)
			}
		}
		out = append(out, joinWords(words, sep, strip))
	}
	return out, nil
}

// Close releases backend resources.
func (b *mappingBackend) Close() error { return nil }
