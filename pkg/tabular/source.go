// Package tabular reads vacancy tables and writes the per-year and frequency
// outputs of a run.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

var ErrEmptyInput = errors.New("input has no header row")

// CSVSource reads rows from a CSV file whose first row is the header.
type CSVSource struct {
	reader *csv.Reader
	closer io.Closer
	schema *record.Schema
}

func OpenCSV(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewCSVSource(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = file
	return src, nil
}

func NewCSVSource(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	return &CSVSource{reader: reader, schema: record.NewSchema(header)}, nil
}

func (s *CSVSource) Schema() *record.Schema {
	return s.schema
}

// Next returns the next data row. Line is the physical line the row starts on.
func (s *CSVSource) Next() (record.Raw, error) {
	values, err := s.reader.Read()
	if err != nil {
		return record.Raw{}, err
	}
	line, _ := s.reader.FieldPos(0)
	return record.Raw{Schema: s.schema, Values: values, Line: line}, nil
}

func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FindInputs expands glob patterns (with ** support) to regular files,
// sorted and without duplicates.
func FindInputs(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				files = append(files, name)
			}
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
