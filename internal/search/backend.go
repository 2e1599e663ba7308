// Package search evaluates parsed queries against the record store.
//
// Two backends implement the same matching contract: IndexBackend runs the
// query on the store's FTS5 trigram index, FilterBackend scans every record.
// Matching is case-insensitive substring search over the columns defined by
// record.SearchColumns, ANDed across terms. key: terms require a whole key or
// original key to match. Author terms match when any one author matches.
package search

import (
	"context"
	"fmt"

	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/record"
	"github.com/matsen/bibsearch/internal/storage"
)

// ErrIndexUnavailable is returned when the index backend is requested on a
// store without the full-text index.
var ErrIndexUnavailable = storage.ErrIndexUnavailable

// Backend evaluates non-empty queries.
type Backend interface {
	Name() string
	Match(ctx context.Context, q query.Query) ([]record.Record, error)
}

// Store is the part of storage.Store the backends need.
type Store interface {
	All(ctx context.Context) ([]record.Record, error)
	Indexed() bool
	MatchIndex(ctx context.Context, q storage.IndexQuery) ([]record.Record, error)
}

// Mode selects a backend.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeIndex  Mode = "index"
	ModeFilter Mode = "filter"
)

// ParseMode validates a configured mode. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeIndex, ModeFilter:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown search backend %q (want auto, index or filter)", s)
}

// NewBackend picks the backend for an open store. In auto mode the index is
// used whenever the store has one.
func NewBackend(store Store, mode Mode) (Backend, error) {
	switch mode {
	case ModeIndex:
		if !store.Indexed() {
			return nil, ErrIndexUnavailable
		}
		return &IndexBackend{store: store}, nil
	case ModeFilter:
		return &FilterBackend{store: store}, nil
	case ModeAuto, "":
		if store.Indexed() {
			return &IndexBackend{store: store}, nil
		}
		return &FilterBackend{store: store}, nil
	}
	return nil, fmt.Errorf("unknown search backend %q", mode)
}
