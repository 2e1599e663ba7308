package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Term
	}{
		{
			name: "free terms",
			raw:  "neural   translation",
			want: []Term{{Text: "neural"}, {Text: "translation"}},
		},
		{
			name: "quoted phrase",
			raw:  `"machine translation" 2017`,
			want: []Term{{Phrase: true, Text: "machine translation"}, {Text: "2017"}},
		},
		{
			name: "field qualified",
			raw:  "author:vilar year:2018",
			want: []Term{{Field: FieldAuthor, Text: "vilar"}, {Field: FieldYear, Text: "2018"}},
		},
		{
			name: "field qualified phrase",
			raw:  `author:"post, matt" title:"constrained   decoding"`,
			want: []Term{
				{Field: FieldAuthor, Phrase: true, Text: "post, matt"},
				{Field: FieldTitle, Phrase: true, Text: "constrained decoding"},
			},
		},
		{
			name: "unknown prefix is plain text",
			raw:  "booktitle:ACL",
			want: []Term{{Text: "booktitle:ACL"}},
		},
		{
			name: "uppercase prefix is plain text",
			raw:  "Author:vilar",
			want: []Term{{Text: "Author:vilar"}},
		},
		{
			name: "quoted field syntax is a phrase",
			raw:  `"author:vilar"`,
			want: []Term{{Phrase: true, Text: "author:vilar"}},
		},
		{
			name: "bare prefix is plain text",
			raw:  "author:",
			want: []Term{{Text: "author:"}},
		},
		{
			name: "empty quoted value is dropped",
			raw:  `author:"" vilar`,
			want: []Term{{Text: "vilar"}},
		},
		{
			name: "unterminated quote runs to end",
			raw:  `"open ended phrase`,
			want: []Term{{Phrase: true, Text: "open ended phrase"}},
		},
		{
			name: "colon in title word",
			raw:  "title:re:thinking",
			want: []Term{{Field: FieldTitle, Text: "re:thinking"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.raw, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Terms)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n", `""`} {
		q, err := Parse(raw, nil)
		require.NoError(t, err)
		assert.True(t, q.IsEmpty(), "Parse(%q) should be empty", raw)
	}
}

func TestParseBuiltinMacro(t *testing.T) {
	q, err := Parse("@acl author:post", nil)
	require.NoError(t, err)

	assert.Equal(t, []Term{
		{Field: FieldVenue, Phrase: true, Text: "Annual Meeting of the Association for Computational Linguistics"},
		{Field: FieldAuthor, Text: "post"},
	}, q.Terms)
}

func TestParseUserMacro(t *testing.T) {
	macros, err := NewMacroTable(map[string]string{
		"mine": `author:"post, matt" year:2018`,
		"loop": "mine",
		"ref":  "@acl",
	})
	require.NoError(t, err)

	q, err := Parse("mine decoding", macros)
	require.NoError(t, err)
	assert.Equal(t, []Term{
		{Field: FieldAuthor, Phrase: true, Text: "post, matt"},
		{Field: FieldYear, Text: "2018"},
		{Text: "decoding"},
	}, q.Terms)

	// Single pass: a macro expanding to another macro's name is not expanded again.
	q, err = Parse("loop", macros)
	require.NoError(t, err)
	assert.Equal(t, []Term{{Text: "mine"}}, q.Terms)

	q, err = Parse("ref", macros)
	require.NoError(t, err)
	assert.Equal(t, []Term{{Text: "@acl"}}, q.Terms)
}

func TestParseQuotedMacroNameIsText(t *testing.T) {
	macros, err := NewMacroTable(map[string]string{"mine": "author:post"})
	require.NoError(t, err)

	q, err := Parse(`"mine" "@acl"`, macros)
	require.NoError(t, err)
	assert.Equal(t, []Term{{Phrase: true, Text: "mine"}, {Phrase: true, Text: "@acl"}}, q.Terms)
}

func TestParseUnknownMacro(t *testing.T) {
	_, err := Parse("@nosuch translation", nil)

	var unknown *UnknownMacroError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "@nosuch", unknown.Name)
}

func TestExpandMacrosIsNoOpWithoutReferences(t *testing.T) {
	macros, err := NewMacroTable(map[string]string{"mine": "author:post"})
	require.NoError(t, err)

	for _, raw := range []string{
		"neural  translation",
		`author:"post, matt"   year:2018`,
		`"mine"`,
		"",
	} {
		got, err := ExpandMacros(raw, macros)
		require.NoError(t, err)
		assert.Equal(t, raw, got)

		again, err := ExpandMacros(got, macros)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestExpandMacros(t *testing.T) {
	got, err := ExpandMacros("@wmt neural", nil)
	require.NoError(t, err)
	assert.Equal(t, `venue:"Machine Translation" neural`, got)
}

func TestWords(t *testing.T) {
	q, err := Words([]string{"machine translation", "author:post, matt", "2017"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Term{
		{Phrase: true, Text: "machine translation"},
		{Field: FieldAuthor, Phrase: true, Text: "post, matt"},
		{Text: "2017"},
	}, q.Terms)
}

func TestQueryStringRoundTrip(t *testing.T) {
	raw := `author:"post, matt" "machine translation" year:2018 decoding`
	q, err := Parse(raw, nil)
	require.NoError(t, err)

	again, err := Parse(q.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, q.Terms, again.Terms)
}
