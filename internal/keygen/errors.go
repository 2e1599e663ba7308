package keygen

import "fmt"

// UnknownPlaceholderError is returned by Compile for a malformed template.
type UnknownPlaceholderError struct {
	Placeholder string
	Template    string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown placeholder %q in key template %q", e.Placeholder, e.Template)
}

// MissingFieldError is returned by Generate when a field the template needs
// is absent or unusable.
type MissingFieldError struct {
	Field  string // author, year, title
	Key    string // original key of the record, for context
	Reason string
}

func (e *MissingFieldError) Error() string {
	msg := fmt.Sprintf("record %q: cannot generate key: missing field %q", e.Key, e.Field)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}
