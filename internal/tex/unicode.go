// Package tex decodes the TeX markup found in BibTeX field values.
package tex

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// symbols are control sequences that stand for a single character.
var symbols = map[string]string{
	`\%`: "%", `\&`: "&", `\#`: "#", `\$`: "$", `\_`: "_", `\{`: "{", `\}`: "}",
	`\ss`: "ß", `\ae`: "æ", `\oe`: "œ", `\o`: "ø", `\AE`: "Æ", `\OE`: "Œ", `\O`: "Ø",
	`\i`: "ı", `\j`: "ȷ", `\aa`: "å", `\AA`: "Å", `\l`: "ł", `\L`: "Ł",
	`\dag`: "†", `\ddag`: "‡", `\S`: "§", `\P`: "¶", `\copyright`: "©",
	`\ `: " ", `\,`: " ", `\-`: "", `\/`: "",
}

// accents map accent commands to Unicode combining marks.
var accents = map[string]string{
	"\\`": "\u0300", `\'`: "\u0301", `\v`: "\u030C", `\u`: "\u0306",
	`\=`: "\u0304", `\^`: "\u0302", `\.`: "\u0307", `\H`: "\u030B",
	`\~`: "\u0303", `\"`: "\u0308", `\d`: "\u0323", `\b`: "\u0331",
	`\c`: "\u0327", `\r`: "\u030A", `\k`: "\u0328",
}

// ToUnicode converts a TeX-encoded value to plain Unicode text: accents and
// character commands are decoded, braces are removed, "--" and "---" become
// en and em dashes and "~" becomes a space. Other commands (\emph, \textbf,
// ...) are dropped, keeping their arguments. $math$ is left alone.
func ToUnicode(s string) string {
	if !strings.ContainsAny(s, `\{}~-`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '\\':
			cmd, next := scanCommand(s, i)
			i = next
			if rep, ok := symbols[cmd]; ok {
				b.WriteString(rep)
				continue
			}
			if mark, ok := accents[cmd]; ok {
				arg, next := scanArgument(s, i)
				i = next
				b.WriteString(applyAccent(arg, mark))
				continue
			}
			if !isLetter(cmd[1]) {
				b.WriteString(cmd[1:])
			}
		case c == '$':
			// Math is copied verbatim.
			end := strings.IndexByte(s[i+1:], '$')
			if end < 0 {
				b.WriteString(s[i:])
				i = len(s)
				continue
			}
			b.WriteString(s[i : i+end+2])
			i += end + 2
		case c == '{' || c == '}':
			i++
		case c == '~':
			b.WriteByte(' ')
			i++
		case strings.HasPrefix(s[i:], "---"):
			b.WriteString("—")
			i += 3
		case strings.HasPrefix(s[i:], "--"):
			b.WriteString("–")
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// scanCommand reads the control sequence starting at s[i] == '\'. A control
// word swallows the spaces after it.
func scanCommand(s string, i int) (string, int) {
	j := i + 1
	if j >= len(s) {
		return `\ `, j
	}
	if !isLetter(s[j]) {
		_, size := utf8.DecodeRuneInString(s[j:])
		return s[i : j+size], j + size
	}
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	cmd := s[i:j]
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	return cmd, j
}

// scanArgument reads one macro argument: a brace group, a control
// sequence, or a single character.
func scanArgument(s string, i int) (string, int) {
	if i >= len(s) {
		return "", i
	}
	switch s[i] {
	case '{':
		depth := 0
		for j := i; j < len(s); j++ {
			switch s[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[i+1 : j], j + 1
				}
			}
		}
		return s[i+1:], len(s)
	case '\\':
		return scanCommand(s, i)
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[i : i+size], i + size
}

func applyAccent(arg, mark string) string {
	switch {
	case arg == "":
		return " " + mark
	case strings.HasPrefix(arg, `\i`), strings.HasPrefix(arg, `\j`):
		// Marks go on the regular letter, not the dotless one.
		arg = arg[1:]
	}
	arg = ToUnicode(arg)
	if arg == "" {
		return " " + mark
	}
	_, size := utf8.DecodeRuneInString(arg)
	return norm.NFC.String(arg[:size]+mark) + arg[size:]
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
