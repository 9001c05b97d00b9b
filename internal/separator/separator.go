// Package separator defines the delimiters inserted between phones,
// syllables and words in phonemized output.
package separator

import "fmt"

// Separator holds the delimiter for each token level. An empty field
// means the level is not delimited at all. Treat values as immutable:
// construct them with New or Default, don't mutate them afterwards.
type Separator struct {
	Word     string
	Syllable string
	Phone    string
}

// Default returns the conventional separators: words split on a space,
// phones on an underscore, syllables not marked.
func Default() Separator {
	return Separator{Word: " ", Syllable: "", Phone: "_"}
}

// New builds a Separator and validates it. Two levels sharing the same
// non-empty delimiter would make the output impossible to parse back,
// so that is rejected here, before any transcription work starts.
func New(word, syllable, phone string) (Separator, error) {
	s := Separator{Word: word, Syllable: syllable, Phone: phone}
	if err := s.Validate(); err != nil {
		return Separator{}, err
	}
	return s, nil
}

// Validate checks that all non-empty delimiters are pairwise distinct.
func (s Separator) Validate() error {
	if s.Word != "" && s.Word == s.Syllable {
		return fmt.Errorf("separator: word and syllable separators are both %q", s.Word)
	}
	if s.Word != "" && s.Word == s.Phone {
		return fmt.Errorf("separator: word and phone separators are both %q", s.Word)
	}
	if s.Syllable != "" && s.Syllable == s.Phone {
		return fmt.Errorf("separator: syllable and phone separators are both %q", s.Syllable)
	}
	return nil
}

// HasWord reports whether a word-level delimiter is defined.
func (s Separator) HasWord() bool { return s.Word != "" }

// HasSyllable reports whether a syllable-level delimiter is defined.
func (s Separator) HasSyllable() bool { return s.Syllable != "" }

// HasPhone reports whether a phone-level delimiter is defined.
func (s Separator) HasPhone() bool { return s.Phone != "" }
