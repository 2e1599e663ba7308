package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/matsen/bibsearch/internal/query"
	"github.com/matsen/bibsearch/internal/record"
)

// ErrNoResults is returned by Resolve when there is nothing to pick from.
var ErrNoResults = errors.New("no matching records")

// IndexOutOfRangeError is returned by Resolve for a result number past the
// end of the last results.
type IndexOutOfRangeError struct {
	Index int // 1-based, as requested
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("requested result %d, but only %d records matched", e.Index, e.Count)
}

// State remembers the last query across invocations; *session.Session
// implements it.
type State interface {
	LastQuery() (query.Query, bool)
	SetLastQuery(q query.Query)
}

// Evaluator runs queries, resolving the empty query to the last one.
type Evaluator struct {
	backend Backend
	store   Store
	state   State
	logger  *slog.Logger
}

// NewEvaluator returns an evaluator. A nil logger uses slog.Default().
func NewEvaluator(backend Backend, store Store, state State, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{backend: backend, store: store, state: state, logger: logger}
}

// Backend returns the backend in use.
func (e *Evaluator) Backend() Backend {
	return e.backend
}

// Evaluate returns the records matching q.
//
// An empty q means the last query. With no last query either, every record
// is returned in insertion order. A non-empty q that evaluates without error
// becomes the last query.
func (e *Evaluator) Evaluate(ctx context.Context, q query.Query) ([]record.Record, error) {
	reused := q.IsEmpty()
	if reused {
		last, ok := e.state.LastQuery()
		if !ok {
			return e.store.All(ctx)
		}
		e.logger.Debug("reusing last query", "query", last.String())
		q = last
	}

	results, err := e.backend.Match(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q with %s backend: %w", q.String(), e.backend.Name(), err)
	}
	// Only a query that ran becomes the last query.
	if !reused {
		e.state.SetLastQuery(q)
	}
	return results, nil
}

var resultNumber = regexp.MustCompile(`^[0-9]+$`)

// Resolve picks one record for commands that act on a single result:
//
//   - no arguments: the first result of the last query
//   - a single number N: the Nth (1-based) result of the last query
//   - anything else: the first result of the query the arguments form
func (e *Evaluator) Resolve(ctx context.Context, args []string, macros *query.MacroTable) (*record.Record, error) {
	index := 1
	q := query.Empty
	if len(args) == 1 && resultNumber.MatchString(args[0]) {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return nil, &IndexOutOfRangeError{Index: n}
		}
		index = n
	} else {
		var err error
		if q, err = query.Words(args, macros); err != nil {
			return nil, err
		}
	}

	results, err := e.Evaluate(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	if index > len(results) {
		return nil, &IndexOutOfRangeError{Index: index, Count: len(results)}
	}
	return &results[index-1], nil
}
