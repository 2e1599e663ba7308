package author

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Name
	}{
		{"comma form", "Post, Matt", Name{Surname: "Post", Given: "Matt"}},
		{"first last", "Matt Post", Name{Surname: "Post", Given: "Matt"}},
		{"middle names", "David A. Vilar", Name{Surname: "Vilar", Given: "David A."}},
		{"von particle", "Ludwig van Beethoven", Name{Surname: "van Beethoven", Given: "Ludwig"}},
		{"von in comma form", "van Beethoven, Ludwig", Name{Surname: "van Beethoven", Given: "Ludwig"}},
		{"jr in comma form", "King, Jr, Martin Luther", Name{Surname: "King", Given: "Martin Luther"}},
		{"single token", "Aristotle", Name{Surname: "Aristotle"}},
		{"braces stripped", "{Post}, Matt", Name{Surname: "Post", Given: "Matt"}},
		{"corporate author", "{Association for Computational Linguistics}", Name{Surname: "Association for Computational Linguistics"}},
		{"tex kept", `Dvo{\v{r}}{\'a}k, Anton{\'\i}n`, Name{Surname: `Dvo{\v{r}}{\'a}k`, Given: `Anton{\'\i}n`}},
		{"braced given with space", `{\"U}ber Mensch`, Name{Surname: "Mensch", Given: `{\"U}ber`}},
		{"von with tex", `Jean {\'e}t{\'e} Dupont`, Name{Surname: `{\'e}t{\'e} Dupont`, Given: "Jean"}},
		{"lineage", "King, Jr, Martin Luther", Name{Surname: "King", Given: "Martin Luther"}},
		{"extra whitespace", "  Matt    Post ", Name{Surname: "Post", Given: "Matt"}},
		{"empty", "", Name{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"bibtex and", "Post, Matt and Vilar, David", []string{"Post, Matt", "Vilar, David"}},
		{"uppercase AND", "Matt Post AND David Vilar", []string{"Post, Matt", "Vilar, David"}},
		{"semicolons", "Post, Matt; Vilar, David", []string{"Post, Matt", "Vilar, David"}},
		{"others dropped", "Post, Matt and others", []string{"Post, Matt"}},
		{"and inside braces", "{Barnes and Noble} and Post, Matt", []string{"Barnes and Noble", "Post, Matt"}},
		{"name containing and", "Alexander Anderson", []string{"Anderson, Alexander"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseList(%q) returned %d names (%v), want %d", tt.input, len(got), got, len(tt.want))
			}
			for i, n := range got {
				if n.String() != tt.want[i] {
					t.Errorf("ParseList(%q)[%d] = %q, want %q", tt.input, i, n.String(), tt.want[i])
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Post", "post"},
		{"Müller", "muller"},
		{"Dvořák", "dvorak"},
		{"O'Neil", "oneil"},
		{"van Beethoven", "vanbeethoven"},
		{"Strauß", "strauss"},
		{"Søgaard", "sogaard"},
		{`M{\"u}ller`, "muller"},
		{`Dvo{\v{r}}{\'a}k`, "dvorak"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatShort(t *testing.T) {
	names := ParseList("Post, Matt and Vilar, David and Brown, Peter")

	if got := FormatShort(names, 2); got != "Matt Post, David Vilar, et al." {
		t.Errorf("FormatShort(2) = %q", got)
	}
	if got := FormatShort(names, 3); got != "Matt Post, David Vilar, Peter Brown" {
		t.Errorf("FormatShort(3) = %q", got)
	}
}
