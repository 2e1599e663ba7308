package author

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/matsen/bibsearch/internal/tex"
)

// special letters that do not decompose into a base letter plus a mark.
var foldSpecial = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "ł", "l", "Ł", "l", "ı", "i", "đ", "d", "Đ", "d",
)

// Normalize folds s into a lower-case token suitable for citation keys and
// duplicate comparison: TeX markup is decoded, diacritics are removed and
// every character that is not a letter or digit is dropped.
//
//	Normalize("Müller-Lüdenscheidt") == "mullerludenscheidt"
//	Normalize(`M{\"u}ller`) == "muller"
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldSpecial.Replace(tex.ToUnicode(s)))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FirstSurname returns the normalized surname of the first author, or "" if there are none.
func FirstSurname(names []Name) string {
	if len(names) == 0 {
		return ""
	}
	return Normalize(names[0].Surname)
}
