package pipeline

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

// Summary describes one run.
type Summary struct {
	RunID        uuid.UUID
	Read         int
	Normalized   int
	Rejected     int
	RejectedBy   map[record.RejectReason]int
	Years        map[int]int
	Unclassified int // non-empty currency cells that are not a currency code
	Earliest     record.Timestamp
	Latest       record.Timestamp
	Chunks       int
	Workers      int
	ChunkSize    int
	Elapsed      time.Duration
}

func newSummary(workers, chunkSize int) Summary {
	return Summary{
		RunID:      uuid.New(),
		RejectedBy: make(map[record.RejectReason]int),
		Years:      make(map[int]int),
		Workers:    workers,
		ChunkSize:  chunkSize,
	}
}

// observe widens the published range with ts.
func (s *Summary) observe(ts record.Timestamp) {
	if s.Earliest.IsZero() || ts.Before(s.Earliest) {
		s.Earliest = ts
	}
	if s.Latest.IsZero() || s.Latest.Before(ts) {
		s.Latest = ts
	}
}

// LogArgs flattens the summary into key/value pairs for a Logger.
func (s Summary) LogArgs() []any {
	args := []any{
		"run_id", s.RunID.String(),
		"read", s.Read,
		"normalized", s.Normalized,
		"rejected", s.Rejected,
		"unclassified_currency", s.Unclassified,
		"chunks", s.Chunks,
		"workers", s.Workers,
		"chunk_size", s.ChunkSize,
		"elapsed", s.Elapsed.String(),
	}
	for _, reason := range slices.Sorted(maps.Keys(s.RejectedBy)) {
		args = append(args, "rejected_"+string(reason), s.RejectedBy[reason])
	}
	if s.Normalized > 0 {
		args = append(args, "earliest", s.Earliest.String(), "latest", s.Latest.String())
	}
	return args
}
