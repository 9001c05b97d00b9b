package separator

import "testing"

func TestDefault(t *testing.T) {
	s := Default()
	if s.Word != " " {
		t.Errorf("Word = %q, want %q", s.Word, " ")
	}
	if s.Syllable != "" {
		t.Errorf("Syllable = %q, want empty", s.Syllable)
	}
	if s.Phone != "_" {
		t.Errorf("Phone = %q, want %q", s.Phone, "_")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name                   string
		word, syllable, phone  string
		wantErr                bool
	}{
		{name: "all_distinct", word: " ", syllable: "|", phone: "-"},
		{name: "all_empty", word: "", syllable: "", phone: ""},
		{name: "empty_never_collides", word: "", syllable: "", phone: "_"},
		{name: "word_equals_phone", word: " ", syllable: "", phone: " ", wantErr: true},
		{name: "word_equals_syllable", word: "|", syllable: "|", phone: "_", wantErr: true},
		{name: "syllable_equals_phone", word: " ", syllable: "-", phone: "-", wantErr: true},
		{name: "all_equal", word: "_", syllable: "_", phone: "_", wantErr: true},
		{name: "multichar_distinct", word: " | ", syllable: "|", phone: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.word, tt.syllable, tt.phone)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q, %q, %q) expected error, got none", tt.word, tt.syllable, tt.phone)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q, %q, %q) error = %v", tt.word, tt.syllable, tt.phone, err)
			}
			if s.Word != tt.word || s.Syllable != tt.syllable || s.Phone != tt.phone {
				t.Errorf("New() = %+v, want {%q %q %q}", s, tt.word, tt.syllable, tt.phone)
			}
		})
	}
}

func TestHasLevels(t *testing.T) {
	s := Separator{Word: " ", Syllable: "", Phone: "_"}
	if !s.HasWord() {
		t.Error("HasWord() = false, want true")
	}
	if s.HasSyllable() {
		t.Error("HasSyllable() = true, want false")
	}
	if !s.HasPhone() {
		t.Error("HasPhone() = false, want true")
	}
}
