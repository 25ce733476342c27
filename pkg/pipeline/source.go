package pipeline

import (
	"io"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

// Source yields raw rows in input order. Next returns io.EOF after the last
// row.
type Source interface {
	Schema() *record.Schema
	Next() (record.Raw, error)
}

// SliceSource serves rows that are already in memory.
type SliceSource struct {
	schema *record.Schema
	rows   []record.Raw
	pos    int
}

func NewSliceSource(schema *record.Schema, rows []record.Raw) *SliceSource {
	return &SliceSource{schema: schema, rows: rows}
}

func (s *SliceSource) Schema() *record.Schema {
	return s.schema
}

func (s *SliceSource) Next() (record.Raw, error) {
	if s.pos >= len(s.rows) {
		return record.Raw{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// readChunk reads up to size rows. It returns the rows read so far together
// with io.EOF or a read error.
func readChunk(src Source, size int) ([]record.Raw, error) {
	rows := make([]record.Raw, 0, size)
	for len(rows) < size {
		row, err := src.Next()
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
