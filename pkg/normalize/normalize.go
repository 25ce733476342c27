// Package normalize turns raw vacancy rows into normalized records.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zedaster/UrfuHhParser/pkg/clean"
	"github.com/zedaster/UrfuHhParser/pkg/record"
	"github.com/zedaster/UrfuHhParser/pkg/timestamp"
)

var (
	ErrMissingColumn = errors.New("column not in schema")
	ErrNoParser      = errors.New("timestamp parser is required")
	errNoTimestamp   = errors.New("timestamp cell is absent")
)

type Options struct {
	Schema          *record.Schema
	Parser          timestamp.Parser
	TimestampColumn string
	CurrencyColumn  string
	CleanedColumns  []string
	RequiredColumns []string
}

// Normalizer holds only read-only state resolved against one schema, so a
// single value is shared by every worker of a run.
type Normalizer struct {
	schema    *record.Schema
	parser    timestamp.Parser
	tsIndex   int
	curIndex  int
	cleaned   []int
	required  []int
	reqNames  []string
	isCleaned map[int]bool
}

// New binds opts to the schema. A column named in opts but missing from the
// header is a configuration error.
func New(opts Options) (*Normalizer, error) {
	if opts.Parser == nil {
		return nil, ErrNoParser
	}
	if opts.Schema == nil {
		return nil, fmt.Errorf("%w: empty schema", ErrMissingColumn)
	}

	lookup := func(role, column string) (int, error) {
		i, ok := opts.Schema.Index(column)
		if !ok {
			return 0, fmt.Errorf("%s column %q: %w", role, column, ErrMissingColumn)
		}
		return i, nil
	}

	n := &Normalizer{
		schema:    opts.Schema,
		parser:    opts.Parser,
		isCleaned: make(map[int]bool),
	}

	var err error
	if n.tsIndex, err = lookup("timestamp", opts.TimestampColumn); err != nil {
		return nil, err
	}
	if n.curIndex, err = lookup("currency", opts.CurrencyColumn); err != nil {
		return nil, err
	}
	for _, column := range opts.CleanedColumns {
		i, err := lookup("cleaned", column)
		if err != nil {
			return nil, err
		}
		n.cleaned = append(n.cleaned, i)
		n.isCleaned[i] = true
	}
	for _, column := range opts.RequiredColumns {
		if column == opts.TimestampColumn {
			continue
		}
		i, err := lookup("required", column)
		if err != nil {
			return nil, err
		}
		n.required = append(n.required, i)
		n.reqNames = append(n.reqNames, column)
	}
	return n, nil
}

func (n *Normalizer) Schema() *record.Schema {
	return n.schema
}

// Normalize cleans and parses raw. Exactly one of the results is meaningful:
// a nil *record.Rejected means the record was normalized.
func (n *Normalizer) Normalize(raw record.Raw) (record.Normalized, *record.Rejected) {
	if n.tsIndex >= len(raw.Values) {
		return record.Normalized{}, &record.Rejected{Raw: raw, Reason: record.ReasonBadTimestamp, Err: errNoTimestamp}
	}
	published, err := n.parser.Parse(raw.Values[n.tsIndex])
	if err != nil {
		return record.Normalized{}, &record.Rejected{Raw: raw, Reason: record.ReasonBadTimestamp, Err: err}
	}

	values := clean.Columns(raw.Values, n.cleaned)
	for k, i := range n.required {
		if i >= len(values) || n.blank(i, values[i]) {
			return record.Normalized{}, &record.Rejected{
				Raw:    raw,
				Reason: record.ReasonMissingField,
				Err:    fmt.Errorf("required column %q is empty", n.reqNames[k]),
			}
		}
	}

	var currency string
	if n.curIndex < len(values) {
		currency = strings.TrimSpace(values[n.curIndex])
	}

	return record.Normalized{
		Schema:    raw.Schema,
		Values:    values,
		Line:      raw.Line,
		Published: published,
		Currency:  currency,
	}, nil
}

// Cleaned cells are already trimmed.
func (n *Normalizer) blank(i int, value string) bool {
	if n.isCleaned[i] {
		return value == ""
	}
	return strings.TrimSpace(value) == ""
}
