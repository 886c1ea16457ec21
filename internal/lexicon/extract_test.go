package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func intValue(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestExtractPrice(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	tests := []struct {
		text    string
		wantMax int
		wantMin int
	}{
		{"show me laptops under 50000", 50000, -1},
		{"under 30k", 30000, -1},
		{"below ₹50,000 please", 50000, -1},
		{"less than 1.5 lakh", 150000, -1},
		{"under 2 lakhs", 200000, -1},
		{"maximum 45,999", 45999, -1},
		{"max 20 thousand", 20000, -1},
		{"above 20 thousand", -1, 20000},
		{"more than rs. 15000", -1, 15000},
		{"phones over 10k under 40k", 40000, 10000},
		{"no price here", -1, -1},
		{"over the moon", -1, -1},
		{"under ,,,", -1, -1},
		{"thunder 500", -1, -1},
	}

	for _, tt := range tests {
		got := e.ExtractPrice(tt.text)
		if intValue(got.Max) != tt.wantMax {
			t.Errorf("ExtractPrice(%q).Max = %d, want %d", tt.text, intValue(got.Max), tt.wantMax)
		}
		if intValue(got.Min) != tt.wantMin {
			t.Errorf("ExtractPrice(%q).Min = %d, want %d", tt.text, intValue(got.Min), tt.wantMin)
		}
	}
}

func TestExtractColorAndBrand(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())

	if got, ok := e.ExtractColor("a BLACK phone"); !ok || got != "Black" {
		t.Errorf("ExtractColor = %q, %v; want Black", got, ok)
	}
	if got, ok := e.ExtractColor("i am bored"); ok {
		t.Errorf("ExtractColor matched %q inside another word", got)
	}
	if got, ok := e.ExtractColor("white and black shoes"); !ok || got != "Black" {
		t.Errorf("ExtractColor = %q; want vocabulary order to pick Black", got)
	}
	if got, ok := e.ExtractBrand("samsung phones"); !ok || got != "Samsung" {
		t.Errorf("ExtractBrand = %q, %v; want Samsung", got, ok)
	}
	if got, ok := e.ExtractBrand("wireless headphones"); ok {
		t.Errorf("ExtractBrand matched %q inside headphones", got)
	}
}

func TestExtractColorAndBrandInflections(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	tests := []struct {
		text      string
		wantBrand string
		wantColor string
	}{
		{"samsungs under 20k", "Samsung", ""},
		{"blackish phones", "", "Black"},
		{"reddish shoes", "", "Red"},
		{"any blues or greens", "", "Blue"},
		{"two dells", "Dell", ""},
		{"bluetooth speaker", "", ""},
		{"redmi note", "Redmi", ""},
		{"a great opportunity", "", ""},
		{"i am bored", "", ""},
	}

	for _, tt := range tests {
		brand, _ := e.ExtractBrand(tt.text)
		if brand != tt.wantBrand {
			t.Errorf("ExtractBrand(%q) = %q, want %q", tt.text, brand, tt.wantBrand)
		}
		color, _ := e.ExtractColor(tt.text)
		if color != tt.wantColor {
			t.Errorf("ExtractColor(%q) = %q, want %q", tt.text, color, tt.wantColor)
		}
	}
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"Show me laptops under 50000", "laptop", true},
		{"need new headphones", "headphones", true},
		{"best iphone deals", "phone", true},
		{"show me some umbrellas", "umbrellas", true},
		{"find nike backpacks under 3k", "backpacks", true},
		{"hello there", "", false},
		{"black", "", false},
		{"samsungs under 20k", "", false},
		{"under 30k", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := e.DetectCategory(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DetectCategory(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGenericNounIsSeparateFromVocabulary(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	if got, ok := e.GenericNoun("show me laptops"); !ok || got != "laptops" {
		t.Errorf("GenericNoun = %q, %v; want raw token laptops", got, ok)
	}
	if _, ok := e.VocabularyCategory("show me umbrellas"); ok {
		t.Error("VocabularyCategory should not apply the noun heuristic")
	}
}

func TestIsRefinement(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	tests := []struct {
		text string
		want bool
	}{
		{"under 30k", true},
		{"  Over 500", true},
		{"less than 20000", true},
		{"black", true},
		{"black color", true},
		{"Samsung please", true},
		{"samsungs under 20k", true},
		{"blackish ones", true},
		{"blacklist", false},
		{"bluetooth speakers", false},
		{"overall rating", false},
		{"show me phones under 30k", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := e.IsRefinement(tt.text); got != tt.want {
			t.Errorf("IsRefinement(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestExtractFilters(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultVocabulary())
	f := e.ExtractFilters("black samsung phone under 30k")
	if intValue(f.PriceMax) != 30000 || f.PriceMin != nil {
		t.Errorf("unexpected price bounds: %+v", f)
	}
	if f.Brand == nil || *f.Brand != "Samsung" {
		t.Errorf("unexpected brand: %v", f.Brand)
	}
	if f.Color == nil || *f.Color != "Black" {
		t.Errorf("unexpected color: %v", f.Color)
	}

	if empty := e.ExtractFilters("show me laptops"); !empty.IsEmpty() {
		t.Errorf("expected no filters, got %+v", empty)
	}
}

func TestLoadVocabularyKeepsDefaultsForMissingSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	data := []byte("categories:\n  - name: kettle\n    triggers: [kettle, teapot]\ncolors: [teal]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if len(v.Categories) != 1 || v.Categories[0].Name != "kettle" {
		t.Fatalf("unexpected categories: %+v", v.Categories)
	}
	if len(v.Brands) == 0 || len(v.StopWords) == 0 {
		t.Fatal("expected default brands and stop words")
	}

	e := NewExtractor(v)
	if got, ok := e.DetectCategory("a teapot in teal"); !ok || got != "kettle" {
		t.Errorf("DetectCategory = %q, %v; want kettle", got, ok)
	}
	if got, _ := e.ExtractColor("a teapot in teal"); got != "Teal" {
		t.Errorf("ExtractColor = %q, want Teal", got)
	}
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"  sAMSUNG ": "Samsung", "black": "Black", "": ""} {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
