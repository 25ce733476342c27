// Package splitter runs the vacancy pipeline over input files and writes the
// per-year tables and reports configured for the run.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zedaster/UrfuHhParser/internal/shared/config"
	"github.com/zedaster/UrfuHhParser/internal/shared/logging"
	"github.com/zedaster/UrfuHhParser/pkg/normalize"
	"github.com/zedaster/UrfuHhParser/pkg/pipeline"
	"github.com/zedaster/UrfuHhParser/pkg/record"
	"github.com/zedaster/UrfuHhParser/pkg/tabular"
	"github.com/zedaster/UrfuHhParser/pkg/timestamp"
)

var ErrNoInputs = errors.New("no input files found")

// FileReport lists what a run over one input produced.
type FileReport struct {
	Input      string
	Partitions []string
	Frequency  string
	Workbook   string
	Rejects    string
	Frequent   []string
	Summary    pipeline.Summary
}

type Service struct {
	cfg    *config.PipelineConfig
	logger logging.Logger
}

func NewService(cfg *config.PipelineConfig, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{cfg: cfg, logger: logger}
}

// SplitFiles expands patterns and splits every matched file in turn. The
// first failing file stops the batch.
func (s *Service) SplitFiles(ctx context.Context, patterns []string) ([]FileReport, error) {
	inputs, err := tabular.FindInputs(patterns)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoInputs, patterns)
	}

	reports := make([]FileReport, 0, len(inputs))
	for _, input := range inputs {
		report, err := s.SplitFile(ctx, input)
		if err != nil {
			return reports, fmt.Errorf("%s: %w", input, err)
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (s *Service) SplitFile(ctx context.Context, input string) (*FileReport, error) {
	parser, err := timestamp.New(timestamp.Strategy(s.cfg.TimestampStrategy))
	if err != nil {
		return nil, err
	}

	src, err := tabular.OpenCSV(input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	normalizer, err := normalize.New(normalize.Options{
		Schema:          src.Schema(),
		Parser:          parser,
		TimestampColumn: s.cfg.TimestampColumn,
		CurrencyColumn:  s.cfg.CurrencyColumn,
		CleanedColumns:  s.cfg.CleanedColumns,
		RequiredColumns: s.cfg.RequiredColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	coordinator, err := pipeline.New(normalizer, pipeline.Options{
		Workers:   s.cfg.Workers,
		ChunkSize: s.cfg.ChunkSize,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Splitting file", "input", input, "strategy", parser.Name())

	res, err := coordinator.Run(ctx, src)
	if err != nil {
		return nil, err
	}

	report, err := s.write(ctx, input, src.Schema(), res)
	if err != nil {
		return nil, err
	}

	s.logger.Info("File split", append([]any{"input", input, "years", len(report.Partitions)}, res.Summary.LogArgs()...)...)
	if len(report.Frequent) > 0 {
		s.logger.Info("Frequent currencies", "input", input, "threshold", s.cfg.Frequency.Threshold, "codes", report.Frequent)
	}
	return report, nil
}

func (s *Service) write(ctx context.Context, input string, schema *record.Schema, res *pipeline.Result) (*FileReport, error) {
	dir := s.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	report := &FileReport{
		Input:    input,
		Frequent: res.Frequency.Above(s.cfg.Frequency.Threshold),
		Summary:  res.Summary,
	}

	paths, err := tabular.WritePartitions(ctx, dir, input, tabular.Format(s.cfg.Output.Format), schema, res.Partitions, s.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("write partitions: %w", err)
	}
	report.Partitions = paths

	report.Frequency = tabular.OutputPath(dir, input, "currencies", "csv")
	if err := tabular.WriteFrequencyCSV(report.Frequency, res.Frequency); err != nil {
		return nil, fmt.Errorf("write frequency table: %w", err)
	}

	if s.cfg.Output.FrequencyXLSX {
		report.Workbook = tabular.OutputPath(dir, input, "report", "xlsx")
		if err := tabular.WriteReportXLSX(report.Workbook, res.Frequency, res.Summary, s.cfg.Frequency.Threshold); err != nil {
			return nil, fmt.Errorf("write report workbook: %w", err)
		}
	}

	if s.cfg.Output.Rejects {
		report.Rejects = tabular.OutputPath(dir, input, "rejects", "csv")
		if err := tabular.WriteRejectsCSV(report.Rejects, schema, res.Rejected); err != nil {
			return nil, fmt.Errorf("write rejects: %w", err)
		}
	}
	return report, nil
}
