package textutil_test

import (
	"math"
	"reflect"
	"testing"

	"vaultgallery/internal/textutil"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *textutil.Fingerprint
		b    *textutil.Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, textutil.NewFingerprint("hello world")},
		{"b nil", textutil.NewFingerprint("hello world"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := textutil.NewNameFingerprint("Jane Doe")
	b := textutil.NewNameFingerprint("jane   doe")
	if got := textutil.CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := textutil.Tokenize("An Émile of the sea")
	want := []string{"émile", "the", "sea"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestSuggestRanksNearMisses(t *testing.T) {
	candidates := []string{"Jane Doe", "Janet Dough", "Bob Stone"}
	got := textutil.Suggest("jane do", candidates, 3, 0.4)
	if len(got) == 0 || got[0] != "Jane Doe" {
		t.Fatalf("expected Jane Doe first, got %v", got)
	}
	for _, name := range got {
		if name == "Bob Stone" {
			t.Fatalf("unrelated name suggested: %v", got)
		}
	}
	if textutil.Suggest("", candidates, 3, 0.1) != nil {
		t.Fatal("expected nil suggestions for empty input")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "jane_doe"},
		{"  Jane   Doe  ", "jane_doe"},
		{"jane_doe", "jane_doe"},
		{"Zoë Ångström", "zoë_ångström"},
		{"../etc", "etc"},
		{"???", "unknown"},
	}
	for _, tt := range tests {
		if got := textutil.SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
