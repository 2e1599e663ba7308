package main

import (
	"errors"

	"github.com/matsen/bibsearch/internal/config"
	"github.com/matsen/bibsearch/internal/keygen"
	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/search"
	"github.com/matsen/bibsearch/internal/storage"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure, no results)
	ExitConfigError = 2 // Configuration error (bad config file, macros or key template)
	ExitDataError   = 3 // Data error (malformed query or input, key conflict)
)

// codedError carries an explicit exit code.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	var (
		cfgErr      *config.Error
		unknown     *query.UnknownMacroError
		collision   *query.MacroCollisionError
		invalid     *query.InvalidMacroNameError
		placeholder *keygen.UnknownPlaceholderError
		outOfRange  *search.IndexOutOfRangeError
		dupKey      *storage.DuplicateKeyError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &collision), errors.As(err, &invalid), errors.As(err, &placeholder):
		return ExitConfigError
	case errors.As(err, &unknown), errors.As(err, &outOfRange), errors.As(err, &dupKey):
		return ExitDataError
	}
	return ExitError
}
