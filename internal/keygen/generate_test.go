package keygen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibsearch/internal/record"
)

func brown1993() record.Record {
	return record.New("article", "brown-etal-1993-mathematics", map[string]string{
		"author":  "Brown, Peter F. and Della Pietra, Stephen A. and Della Pietra, Vincent J. and Mercer, Robert L.",
		"title":   "The Mathematics of Statistical Machine Translation: Parameter Estimation",
		"journal": "Computational Linguistics",
		"year":    "1993",
	})
}

func TestGenerateDefaultTemplate(t *testing.T) {
	tmpl := MustCompile(DefaultTemplate)

	key, err := Generate(brown1993(), NewKeySet(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, "brown1993:mathematics", key)
}

func TestGenerateIsDeterministic(t *testing.T) {
	tmpl := MustCompile(DefaultTemplate)
	existing := NewKeySet("brown1993:mathematics")

	first, err := Generate(brown1993(), existing, tmpl)
	require.NoError(t, err)
	second, err := Generate(brown1993(), existing, tmpl)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSuffixSequence(t *testing.T) {
	tmpl := MustCompile(DefaultTemplate)
	existing := NewKeySet()

	var keys []string
	for i := 0; i < 3; i++ {
		key, err := Generate(brown1993(), existing, tmpl)
		require.NoError(t, err)
		existing.Add(key)
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"brown1993:mathematics", "brown1993a:mathematics", "brown1993b:mathematics"}, keys)
}

func TestGenerateSuffixAtEnd(t *testing.T) {
	tmpl := MustCompile("{surname}{year}:{title}")
	existing := NewKeySet("brown1993:mathematics")

	second, err := Generate(brown1993(), existing, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "brown1993:mathematicsa", second)
	existing.Add(second)

	third, err := Generate(brown1993(), existing, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "brown1993:mathematicsb", third)
}

func TestGenerateAppendsSuffixWithoutPlaceholder(t *testing.T) {
	tmpl := MustCompile("{surname}{year}")
	key, err := Generate(brown1993(), NewKeySet("brown1993"), tmpl)
	require.NoError(t, err)
	assert.Equal(t, "brown1993a", key)
}

func TestGenerateEtAlAndShortYear(t *testing.T) {
	tmpl := MustCompile("{surname}{et_al}{short_year}")

	key, err := Generate(brown1993(), NewKeySet(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, "brown_etAl93", key)

	single := record.New("book", "knuth", map[string]string{"author": "Donald E. Knuth", "year": "1984"})
	key, err = Generate(single, NewKeySet(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, "knuth84", key)
}

func TestGenerateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		fields map[string]string
		field  string
	}{
		{name: "no authors", tmpl: DefaultTemplate, fields: map[string]string{"title": "Anything", "year": "2001"}, field: "author"},
		{name: "no year", tmpl: DefaultTemplate, fields: map[string]string{"author": "Post, Matt", "title": "Anything"}, field: "year"},
		{name: "bad year", tmpl: "{surname}{year}", fields: map[string]string{"author": "Post, Matt", "year": "forthcoming"}, field: "year"},
		{name: "no title", tmpl: DefaultTemplate, fields: map[string]string{"author": "Post, Matt", "year": "2018"}, field: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record.New("misc", "orig", tt.fields)
			_, err := Generate(r, NewKeySet(), MustCompile(tt.tmpl))
			var mfe *MissingFieldError
			require.True(t, errors.As(err, &mfe), "want *MissingFieldError, got %v", err)
			assert.Equal(t, tt.field, mfe.Field)
			assert.Equal(t, "orig", mfe.Key)
		})
	}
}

func TestGenerateIgnoresUnreferencedFields(t *testing.T) {
	// No authors, but the template never asks for them.
	r := record.New("misc", "anon", map[string]string{"title": "A Call for Clarity", "year": "2018"})

	key, err := Generate(r, NewKeySet(), MustCompile("{title}{year}"))
	require.NoError(t, err)
	assert.Equal(t, "call2018", key)
}

func TestGenerateFoldsDiacritics(t *testing.T) {
	r := record.New("article", "x", map[string]string{
		"author": "Dvořák, Antonín",
		"title":  "{Ü}ber die Symphonie",
		"year":   "c. 1893",
	})
	key, err := Generate(r, NewKeySet(), MustCompile(DefaultTemplate))
	require.NoError(t, err)
	assert.Equal(t, "dvorak1893:uber", key)
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, ""}, {1, "a"}, {2, "b"}, {26, "z"}, {27, "aa"}, {28, "ab"}, {52, "az"}, {53, "ba"}, {702, "zz"}, {703, "aaa"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Suffix(tt.level), "level %d", tt.level)
	}
}

func TestTitleWord(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Mathematics of Statistical Machine Translation", "mathematics"},
		{"On the Origin of Species", "origin"},
		{"{BLEU}: a Method for Automatic Evaluation", "bleu"},
		{"The The", "the"},
		{`{\"U}ber~alles`, "uber"},
		{"-- !!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleWord(tt.title))
		})
	}
}
