package backend

import (
	"testing"

	"github.com/chaz8081/phonemize/internal/separator"
)

func TestParseSexpr(t *testing.T) {
	expr, err := parseSexpr(`(a (b "c") ())`)
	if err != nil {
		t.Fatalf("parseSexpr() error = %v", err)
	}
	if len(expr.list) != 3 {
		t.Fatalf("top-level list length = %d, want 3", len(expr.list))
	}
	if expr.list[0].atom != "a" {
		t.Errorf("first element = %q, want %q", expr.list[0].atom, "a")
	}
	if expr.list[1].list[1].atom != `"c"` {
		t.Errorf("nested atom = %q, want %q", expr.list[1].list[1].atom, `"c"`)
	}
	if !expr.list[2].isList() || len(expr.list[2].list) != 0 {
		t.Error("third element should be an empty list")
	}
}

func TestParseSexprErrors(t *testing.T) {
	tests := []string{"", "(a (b)", "a)", "(a) b"}
	for _, in := range tests {
		if _, err := parseSexpr(in); err == nil {
			t.Errorf("parseSexpr(%q) expected error, got none", in)
		}
	}
}

func TestFestivalClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`say "this" (loudly)`, "say this loudly"},
		{"plain text", "plain text"},
		{"'''", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := festivalClean(tt.in); got != tt.want {
			t.Errorf("festivalClean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Trees below follow festival's SylStructure print format: a line is a
// list of word nodes, word[1:] are syllables, syll[1:] are phones, and
// each node's info head carries its quoted name.

func TestFestivalLine(t *testing.T) {
	// One word "hi": one syllable, phones hh + ay.
	line := `((("hi" ((id _1))) (("syl" ((id _2))) (("hh" ((id _3)))) (("ay" ((id _4)))))))`
	got, err := festivalLine(line, separator.Separator{Word: " ", Syllable: "|", Phone: "-"}, true)
	if err != nil {
		t.Fatalf("festivalLine() error = %v", err)
	}
	if got != "hh-ay" {
		t.Errorf("festivalLine() = %q, want %q", got, "hh-ay")
	}
}

func TestFestivalLineTwoSyllables(t *testing.T) {
	// A single word node with two syllables.
	line := `((("hello") (("syl") (("hh")) (("ax"))) (("syl") (("l")) (("ow")))))`
	got, err := festivalLine(line, separator.Separator{Word: " ", Syllable: "|", Phone: "-"}, true)
	if err != nil {
		t.Fatalf("festivalLine() error = %v", err)
	}
	if got != "hh-ax|l-ow" {
		t.Errorf("festivalLine() = %q, want %q", got, "hh-ax|l-ow")
	}
}

func TestFestivalLineTwoWords(t *testing.T) {
	// Two word nodes at the top level, each with one syllable.
	line := `((("go") (("syl") (("g")) (("ow")))) (("now") (("syl") (("n")) (("aw")))))`
	got, err := festivalLine(line, separator.Separator{Word: " ", Syllable: "", Phone: "_"}, true)
	if err != nil {
		t.Fatalf("festivalLine() error = %v", err)
	}
	if got != "g_ow n_aw" {
		t.Errorf("festivalLine() = %q, want %q", got, "g_ow n_aw")
	}
}

func TestFestivalLineUnbalanced(t *testing.T) {
	if _, err := festivalLine("((broken", separator.Default(), true); err == nil {
		t.Error("festivalLine() expected error for unbalanced tree")
	}
}
