package export

import (
	"strings"
	"testing"

	"github.com/matsen/bibsearch/internal/record"
)

func testRecord() record.Record {
	r := record.New("inproceedings", "N18-1119", map[string]string{
		"author":    `Post, Matt and Vilar, David`,
		"title":     `Fast Lexically Constrained Decoding with {D}ynamic Beam Allocation`,
		"booktitle": "Proceedings of NAACL",
		"year":      "2018",
		"pages":     "1314--1324",
		"url":       "https://aclweb.org/anthology/N18-1119",
	})
	r.Key = "post2018:fast"
	return r
}

func TestToBibTeX_Basic(t *testing.T) {
	got := ToBibTeX(testRecord(), BibTeXOptions{})

	want := `@inproceedings{post2018:fast,
  author = {Post, Matt and Vilar, David},
  title = {Fast Lexically Constrained Decoding with {D}ynamic Beam Allocation},
  booktitle = {Proceedings of NAACL},
  year = {2018},
  pages = {1314--1324},
  url = {https://aclweb.org/anthology/N18-1119},
}
`
	if got != want {
		t.Errorf("ToBibTeX() =\n%s\nwant:\n%s", got, want)
	}
}

func TestToBibTeX_OriginalKey(t *testing.T) {
	r := testRecord()

	got := ToBibTeX(r, BibTeXOptions{UseOriginalKey: true})
	if !strings.HasPrefix(got, "@inproceedings{N18-1119,") {
		t.Errorf("ToBibTeX(UseOriginalKey) should cite N18-1119, got:\n%s", got)
	}
	if strings.Contains(got, "original_key") {
		t.Errorf("ToBibTeX() should not write original_key unless asked, got:\n%s", got)
	}

	got = ToBibTeX(r, BibTeXOptions{WithOriginalKey: true})
	if !strings.HasPrefix(got, "@inproceedings{post2018:fast,") {
		t.Errorf("ToBibTeX(WithOriginalKey) should cite post2018:fast, got:\n%s", got)
	}
	if !strings.Contains(got, "  original_key = {N18-1119},\n}") {
		t.Errorf("ToBibTeX(WithOriginalKey) should end with original_key, got:\n%s", got)
	}
}

func TestToBibTeX_TeXKept(t *testing.T) {
	r := record.New("article", "k", map[string]string{
		"author": `M{\"u}ller, Hans`,
		"title":  `50\% of {BLEU}`,
	})
	got := ToBibTeX(r, BibTeXOptions{})
	if !strings.Contains(got, `author = {M{\"u}ller, Hans}`) || !strings.Contains(got, `title = {50\% of {BLEU}}`) {
		t.Errorf("ToBibTeX() should write values verbatim, got:\n%s", got)
	}
	if !strings.HasPrefix(got, "@article{k,") {
		t.Errorf("ToBibTeX() should fall back to the original key without a key, got:\n%s", got)
	}
}

func TestToBibTeX_NoType(t *testing.T) {
	r := record.New("", "k", map[string]string{"title": "T"})
	if got := ToBibTeX(r, BibTeXOptions{}); !strings.HasPrefix(got, "@misc{k,") {
		t.Errorf("ToBibTeX() should default to misc, got:\n%s", got)
	}
}

func TestToBibTeXList(t *testing.T) {
	a := testRecord()
	b := record.New("article", "J93-2003", map[string]string{"title": "The Mathematics"})
	b.Key = "brown1993:mathematics"

	got := ToBibTeXList([]record.Record{a, b}, BibTeXOptions{})
	if strings.Count(got, "@") != 2 {
		t.Errorf("ToBibTeXList() should contain 2 entries, got:\n%s", got)
	}
	if !strings.Contains(got, "}\n\n@article{brown1993:mathematics,") {
		t.Errorf("ToBibTeXList() should separate entries by a blank line, got:\n%s", got)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	if got := ToBibTeXList(nil, BibTeXOptions{}); got != "" {
		t.Errorf("ToBibTeXList(nil) = %q, want empty", got)
	}
}
