package adapter

import "testing"

func TestMapEbayCategory(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Electronics", "293"},
		{"Gaming Laptop", "175672"}, // laptop 比 phone 等更长的命中优先
		{"wireless mouse", "23160"},
		{"", "99"},
		{"something nobody sells", "99"},
	}
	for _, c := range cases {
		if got := MapEbayCategory(c.input); got != c.want {
			t.Errorf("MapEbayCategory(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestMapEbayCondition(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Brand New", "NEW"},
		{"new", "NEW"},
		{"Used - Good", "USED_GOOD"},
		{"for parts or broken", "FOR_PARTS_OR_NOT_WORKING"},
		{"", "USED_GOOD"},
		{"mystery condition", "USED_GOOD"},
	}
	for _, c := range cases {
		if got := MapEbayCondition(c.input); got != c.want {
			t.Errorf("MapEbayCondition(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestMapEtsyTaxonomy(t *testing.T) {
	if got := MapEtsyTaxonomy("Vintage Jewelry"); got != 69150433 {
		t.Errorf("vintage 应当优先于 jewelry, got %d", got)
	}
	if got := MapEtsyTaxonomy("unknown category"); got != 69150467 {
		t.Errorf("未命中应落到兜底 taxonomy, got %d", got)
	}
	if got := MapEtsyTaxonomy(""); got != 69150467 {
		t.Errorf("空类目应落到兜底 taxonomy, got %d", got)
	}
}

func TestMapCraigslistCity(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"San Francisco", "sfbay"},
		{"Brooklyn", "newyork"},
		{"  CHICAGO  ", "chicago"},
		{"smalltown nowhere", "newyork"},
		{"", "newyork"},
	}
	for _, c := range cases {
		if got := MapCraigslistCity(c.input); got != c.want {
			t.Errorf("MapCraigslistCity(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestMapCraigslistCategory(t *testing.T) {
	if got := MapCraigslistCategory("video game console"); got != "vga" {
		t.Errorf("MapCraigslistCategory = %q, want vga", got)
	}
	if got := MapCraigslistCategory("whatever"); got != "foa" {
		t.Errorf("未命中应落到 general for sale, got %q", got)
	}
}
