package record

import "fmt"

// Schema is the ordered header of a tabular input. It is built once per run
// and shared read-only by every record of that run.
type Schema struct {
	columns []string
	index   map[string]int
}

func NewSchema(columns []string) *Schema {
	s := &Schema{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		// First occurrence wins for duplicated header names.
		if _, exists := s.index[name]; !exists {
			s.index[name] = i
		}
	}
	return s
}

func (s *Schema) Columns() []string {
	return s.columns
}

func (s *Schema) Len() int {
	return len(s.columns)
}

// Index returns the position of column in the header.
func (s *Schema) Index(column string) (int, bool) {
	i, ok := s.index[column]
	return i, ok
}

// Raw is one input row as produced by the reader.
type Raw struct {
	Schema *Schema
	Values []string
	Line   int
}

// Get returns the cell for column. It reports false when the column is not
// part of the schema or the row is shorter than the header.
func (r Raw) Get(column string) (string, bool) {
	if r.Schema == nil {
		return "", false
	}
	i, ok := r.Schema.Index(column)
	if !ok || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// Normalized is a Raw row with its text columns cleaned and its timestamp
// column parsed.
type Normalized struct {
	Schema    *Schema
	Values    []string
	Line      int
	Published Timestamp
	Currency  string
}

func (n Normalized) Year() int {
	return n.Published.Year
}

func (n Normalized) Get(column string) (string, bool) {
	return Raw{Schema: n.Schema, Values: n.Values}.Get(column)
}

type RejectReason string

const (
	ReasonBadTimestamp RejectReason = "bad_timestamp"
	ReasonMissingField RejectReason = "missing_field"
)

// Rejected is a terminal, non-fatal classification of a row that failed
// normalization.
type Rejected struct {
	Raw    Raw
	Reason RejectReason
	Err    error
}

func (r *Rejected) Error() string {
	if r.Err == nil {
		return fmt.Sprintf("line %d rejected: %s", r.Raw.Line, r.Reason)
	}
	return fmt.Sprintf("line %d rejected: %s: %v", r.Raw.Line, r.Reason, r.Err)
}

func (r *Rejected) Unwrap() error {
	return r.Err
}
