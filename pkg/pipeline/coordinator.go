// Package pipeline normalizes a row stream in parallel and partitions it by
// year.
//
// The input is cut into contiguous chunks that are processed on a fixed
// worker pool. A worker owns everything it builds for its chunk; the
// coordinator only looks at chunk results after the pool has drained, and
// merges them in chunk order so the output matches a sequential pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/zedaster/UrfuHhParser/internal/shared/logging"
	"github.com/zedaster/UrfuHhParser/pkg/frequency"
	"github.com/zedaster/UrfuHhParser/pkg/normalize"
	"github.com/zedaster/UrfuHhParser/pkg/partition"
	"github.com/zedaster/UrfuHhParser/pkg/record"
)

const DefaultChunkSize = 10_000

var ErrInvalidOptions = errors.New("invalid pipeline options")

// WorkerError reports a defect while processing a chunk. It fails the run.
type WorkerError struct {
	Chunk int
	Err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Chunk, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

type Options struct {
	Workers   int
	ChunkSize int
	Logger    logging.Logger
}

type Coordinator struct {
	normalizer *normalize.Normalizer
	workers    int
	chunkSize  int
	logger     logging.Logger
}

func New(normalizer *normalize.Normalizer, opts Options) (*Coordinator, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("%w: normalizer is required", ErrInvalidOptions)
	}
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidOptions, opts.Workers)
	}
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, opts.ChunkSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Coordinator{
		normalizer: normalizer,
		workers:    opts.Workers,
		chunkSize:  opts.ChunkSize,
		logger:     logger,
	}, nil
}

// Result is the merged output of a run.
type Result struct {
	Partitions *partition.Partition
	Frequency  frequency.Table
	Rejected   []record.Rejected
	Summary    Summary
}

type chunkResult struct {
	partition    *partition.Partition
	frequency    frequency.Table
	rejected     []record.Rejected
	unclassified int
	earliest     record.Timestamp
	latest       record.Timestamp
}

// Run processes every row of src. Any worker defect, read error or context
// cancellation fails the whole run and no partial result is returned.
func (c *Coordinator) Run(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	summary := newSummary(c.workers, c.chunkSize)

	c.logger.Info("Starting run",
		"run_id", summary.RunID.String(),
		"workers", c.workers,
		"chunk_size", c.chunkSize,
	)

	pool := NewPool(c.workers)
	pool.Start()

	// Each slot is written by exactly one task and read only after Close.
	var slots []*chunkResult
	var dispatchErr error
	for chunk := 0; ; chunk++ {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		rows, readErr := readChunk(src, c.chunkSize)
		summary.Read += len(rows)

		if len(rows) > 0 {
			slot := &chunkResult{}
			slots = append(slots, slot)
			c.logger.Debug("Dispatching chunk", "chunk", chunk, "rows", len(rows))
			if err := pool.Submit(ctx, c.chunkTask(chunk, rows, slot)); err != nil {
				dispatchErr = err
				break
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			dispatchErr = fmt.Errorf("read chunk %d: %w", chunk, readErr)
			break
		}
	}

	if poolErr := pool.Close(); poolErr != nil {
		c.logger.Error("Run aborted by worker failure", "run_id", summary.RunID.String(), "error", poolErr)
		return nil, poolErr
	}
	if dispatchErr != nil {
		c.logger.Error("Run aborted", "run_id", summary.RunID.String(), "error", dispatchErr)
		return nil, dispatchErr
	}

	result := &Result{
		Partitions: partition.New(),
		Frequency:  frequency.Table{},
	}
	for _, slot := range slots {
		result.Partitions.Append(slot.partition)
		result.Frequency.Merge(slot.frequency)
		result.Rejected = append(result.Rejected, slot.rejected...)
		for _, rej := range slot.rejected {
			summary.RejectedBy[rej.Reason]++
		}
		summary.Unclassified += slot.unclassified
		if slot.partition.Len() > 0 {
			summary.observe(slot.earliest)
			summary.observe(slot.latest)
		}
	}

	summary.Chunks = len(slots)
	summary.Normalized = result.Partitions.Len()
	summary.Rejected = len(result.Rejected)
	summary.Years = result.Partitions.Counts()
	summary.Elapsed = time.Since(start)
	result.Summary = summary

	c.logger.Info("Run completed", summary.LogArgs()...)
	return result, nil
}

func (c *Coordinator) chunkTask(chunk int, rows []record.Raw, slot *chunkResult) Task {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &WorkerError{Chunk: chunk, Err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		*slot = c.processChunk(rows)
		return nil
	}
}

// processChunk runs sequentially over one chunk and touches no shared state.
func (c *Coordinator) processChunk(rows []record.Raw) chunkResult {
	out := chunkResult{
		partition: partition.New(),
		frequency: frequency.Table{},
	}
	for _, raw := range rows {
		rec, rej := c.normalizer.Normalize(raw)
		if rej != nil {
			out.rejected = append(out.rejected, *rej)
			continue
		}

		out.partition.Add(rec)
		if rec.Currency != "" && !out.frequency.Observe(rec.Currency) {
			out.unclassified++
		}
		if out.earliest.IsZero() || rec.Published.Before(out.earliest) {
			out.earliest = rec.Published
		}
		if out.latest.IsZero() || out.latest.Before(rec.Published) {
			out.latest = rec.Published
		}
	}
	return out
}
