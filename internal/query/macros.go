package query

import (
	"sort"
	"strings"
)

// MacroPrefix marks references to built-in macros.
const MacroPrefix = "@"

// builtinMacros are available in every query. User macros may not shadow them.
var builtinMacros = map[string]string{
	"@acl":   `venue:"Annual Meeting of the Association for Computational Linguistics"`,
	"@emnlp": `venue:"Conference on Empirical Methods in Natural Language Processing"`,
	"@wmt":   `venue:"Machine Translation"`,
	"@naacl": `venue:"Conference of the North American Chapter of the Association for Computational Linguistics"`,
	"@cl":    `venue:"Computational Linguistics"`,
	"@arxiv": `venue:"Computing Research Repository"`,
	"@corr":  `venue:"Computing Research Repository"`,
}

// Macro is a named query fragment.
type Macro struct {
	Name      string `json:"name"`
	Expansion string `json:"expansion"`
	Builtin   bool   `json:"builtin"`
}

// MacroTable holds the built-in and user macros. It is immutable once built.
// A nil *MacroTable behaves as a table with only the built-ins.
type MacroTable struct {
	user map[string]string
}

// NewMacroTable validates user macros and builds a table.
// User macro names are unprefixed; a name equal to a built-in is a
// *MacroCollisionError, a name that no query token could reference is an
// *InvalidMacroNameError.
func NewMacroTable(user map[string]string) (*MacroTable, error) {
	t := &MacroTable{user: make(map[string]string, len(user))}

	// Sorted for deterministic error reporting.
	names := make([]string, 0, len(user))
	for name := range user {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := builtinMacros[name]; ok {
			return nil, &MacroCollisionError{Name: name}
		}
		if _, ok := builtinMacros[MacroPrefix+name]; ok {
			return nil, &MacroCollisionError{Name: name}
		}
		switch {
		case name == "":
			return nil, &InvalidMacroNameError{Name: name, Reason: "empty name"}
		case strings.HasPrefix(name, MacroPrefix):
			return nil, &InvalidMacroNameError{Name: name, Reason: "the @ prefix is reserved for built-in macros"}
		case strings.ContainsAny(name, " \t\n\""):
			return nil, &InvalidMacroNameError{Name: name, Reason: "names may not contain whitespace or quotes"}
		}
		t.user[name] = user[name]
	}
	return t, nil
}

// Builtin returns the expansion of a built-in macro (name includes the @).
func Builtin(name string) (string, bool) {
	exp, ok := builtinMacros[name]
	return exp, ok
}

// User returns the expansion of a user macro.
func (t *MacroTable) User(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	exp, ok := t.user[name]
	return exp, ok
}

// All returns every macro, built-ins first, each group sorted by name.
func (t *MacroTable) All() []Macro {
	var macros []Macro
	for name, exp := range builtinMacros {
		macros = append(macros, Macro{Name: name, Expansion: exp, Builtin: true})
	}
	if t != nil {
		for name, exp := range t.user {
			macros = append(macros, Macro{Name: name, Expansion: exp})
		}
	}
	sort.Slice(macros, func(i, j int) bool {
		if macros[i].Builtin != macros[j].Builtin {
			return macros[i].Builtin
		}
		return macros[i].Name < macros[j].Name
	})
	return macros
}
