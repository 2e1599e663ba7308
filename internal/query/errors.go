package query

import "fmt"

// MacroCollisionError is returned when a user macro reuses a built-in name.
type MacroCollisionError struct {
	Name string
}

func (e *MacroCollisionError) Error() string {
	return fmt.Sprintf("macro %q collides with a built-in macro", e.Name)
}

// InvalidMacroNameError is returned for user macro names that could never be
// referenced from a query.
type InvalidMacroNameError struct {
	Name   string
	Reason string
}

func (e *InvalidMacroNameError) Error() string {
	return fmt.Sprintf("invalid macro name %q: %s", e.Name, e.Reason)
}

// UnknownMacroError is returned when a query references an undefined @macro.
type UnknownMacroError struct {
	Name string
}

func (e *UnknownMacroError) Error() string {
	return fmt.Sprintf("unknown macro %q", e.Name)
}
