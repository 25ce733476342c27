package tabular

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"

	"github.com/zedaster/UrfuHhParser/pkg/partition"
	"github.com/zedaster/UrfuHhParser/pkg/record"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatParquet
}

// Sink receives the records of one output partition.
type Sink interface {
	Write(rec record.Normalized) error
	Close() error
}

func NewSink(format Format, path string, schema *record.Schema) (Sink, error) {
	switch format {
	case FormatCSV:
		return NewCSVSink(path, schema)
	case FormatParquet:
		return NewParquetSink(path, schema)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// YearPath names the output of year after the input file: vacancies.csv
// becomes vacancies_2019.csv in dir.
func YearPath(dir, input string, year int, format Format) string {
	return OutputPath(dir, input, strconv.Itoa(year), string(format))
}

// OutputPath names a side output of input, such as vacancies_currencies.csv.
func OutputPath(dir, input, suffix, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, stem+"_"+suffix+"."+ext)
}

type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

func NewCSVSink(path string, schema *record.Schema) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(file)
	if err := w.Write(schema.Columns()); err != nil {
		file.Close()
		return nil, err
	}
	return &CSVSink{file: file, writer: w}, nil
}

func (s *CSVSink) Write(rec record.Normalized) error {
	return s.writer.Write(rec.Values)
}

func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// ParquetSink stores every input column as an optional UTF8 string next to
// the parsed publication year.
type ParquetSink struct {
	file    source.ParquetFile
	writer  *writer.JSONWriter
	columns []string
}

const parquetYearColumn = "published_year"

func NewParquetSink(path string, schema *record.Schema) (*ParquetSink, error) {
	columns := parquetColumns(schema.Columns())

	fields := make([]string, 0, len(columns)+1)
	fields = append(fields, fmt.Sprintf(`{"Tag":"name=%s, type=INT32, repetitiontype=REQUIRED"}`, parquetYearColumn))
	for _, name := range columns {
		fields = append(fields, fmt.Sprintf(`{"Tag":"name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"}`, name))
	}
	jsonSchema := fmt.Sprintf(`{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[%s]}`, strings.Join(fields, ","))

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	pw, err := writer.NewJSONWriter(jsonSchema, fw, 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	return &ParquetSink{file: fw, writer: pw, columns: columns}, nil
}

func (s *ParquetSink) Write(rec record.Normalized) error {
	row := make(map[string]any, len(s.columns)+1)
	row[parquetYearColumn] = rec.Year()
	for i, name := range s.columns {
		if i < len(rec.Values) {
			row[name] = rec.Values[i]
		} else {
			row[name] = nil
		}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if err := s.writer.Write(string(data)); err != nil {
		return fmt.Errorf("failed to write parquet row: %w", err)
	}
	return nil
}

func (s *ParquetSink) Close() error {
	if err := s.writer.WriteStop(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return s.file.Close()
}

// parquetColumns maps header names to unique lower-case identifiers.
func parquetColumns(header []string) []string {
	seen := map[string]bool{parquetYearColumn: true}
	out := make([]string, len(header))
	for i, name := range header {
		var b strings.Builder
		for _, r := range strings.ToLower(strings.TrimSpace(name)) {
			switch {
			case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
				b.WriteRune(r)
			case r == '_' || unicode.IsSpace(r) || r == '-':
				b.WriteByte('_')
			}
		}
		id := b.String()
		if id == "" || !unicode.IsLetter(rune(id[0])) {
			id = "col_" + strconv.Itoa(i) + id
		}
		for seen[id] {
			id += "_" + strconv.Itoa(i)
		}
		seen[id] = true
		out[i] = id
	}
	return out
}

// WritePartitions writes every year of part to its own file, at most limit
// files at a time, and returns the paths in year order.
func WritePartitions(ctx context.Context, dir, input string, format Format, schema *record.Schema, part *partition.Partition, limit int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	years := part.Years()
	paths := make([]string, len(years))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, year := range years {
		paths[i] = YearPath(dir, input, year, format)
		g.Go(func() error {
			return writeYear(ctx, format, paths[i], schema, part.Records(year))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeYear(ctx context.Context, format Format, path string, schema *record.Schema, recs []record.Normalized) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sink, err := NewSink(format, path, schema)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := sink.Write(rec); err != nil {
			sink.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
