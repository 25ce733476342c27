package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedaster/UrfuHhParser/pkg/frequency"
	"github.com/zedaster/UrfuHhParser/pkg/normalize"
	"github.com/zedaster/UrfuHhParser/pkg/record"
	"github.com/zedaster/UrfuHhParser/pkg/timestamp"
)

var schema = record.NewSchema([]string{"name", "salary_currency", "area_name", "published_at"})

func newNormalizer(t *testing.T, parser timestamp.Parser) *normalize.Normalizer {
	t.Helper()
	if parser == nil {
		var err error
		parser, err = timestamp.New(timestamp.StrategyCustom)
		require.NoError(t, err)
	}
	n, err := normalize.New(normalize.Options{
		Schema:          schema,
		Parser:          parser,
		TimestampColumn: "published_at",
		CurrencyColumn:  "salary_currency",
		CleanedColumns:  []string{"name", "area_name"},
		RequiredColumns: []string{"name"},
	})
	require.NoError(t, err)
	return n
}

func newCoordinator(t *testing.T, parser timestamp.Parser, workers, chunkSize int) *Coordinator {
	t.Helper()
	c, err := New(newNormalizer(t, parser), Options{Workers: workers, ChunkSize: chunkSize})
	require.NoError(t, err)
	return c
}

func row(line int, name, currency, published string) record.Raw {
	return record.Raw{
		Schema: schema,
		Values: []string{name, currency, "<i>Moscow</i>", published},
		Line:   line,
	}
}

func yearLines(res *Result) map[int][]int {
	out := make(map[int][]int)
	for _, year := range res.Partitions.Years() {
		for _, rec := range res.Partitions.Records(year) {
			out[year] = append(out[year], rec.Line)
		}
	}
	return out
}

func TestNew_InvalidOptions(t *testing.T) {
	n := newNormalizer(t, nil)

	tests := []struct {
		name string
		opts Options
	}{
		{name: "zero workers", opts: Options{Workers: 0, ChunkSize: 10}},
		{name: "negative chunk size", opts: Options{Workers: 2, ChunkSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(n, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}

	_, err := New(nil, Options{Workers: 1, ChunkSize: 1})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestRun_TwoChunkExample(t *testing.T) {
	rows := []record.Raw{
		row(1, "a", "RUR", "2020-01-01T10:00:00+0300"),
		row(2, "b", "RUR", "2020-05-01T10:00:00+0300"),
		row(3, "c", "USD", "2020-12-31T23:59:59+0300"),
		row(4, "d", "EUR", "2021-02-01T10:00:00+0300"),
		row(5, "e", "RUR", "2021-03-01T10:00:00+0300"),
		row(6, "f", "RUR", "2021-13-01T10:00:00+0300"),
	}

	c := newCoordinator(t, nil, 2, 3)
	res, err := c.Run(context.Background(), NewSliceSource(schema, rows))
	require.NoError(t, err)

	assert.Equal(t, map[int]int{2020: 3, 2021: 2}, res.Partitions.Counts())
	assert.Equal(t, map[int][]int{2020: {1, 2, 3}, 2021: {4, 5}}, yearLines(res))
	assert.Equal(t, frequency.Table{"RUR": 3, "USD": 1, "EUR": 1}, res.Frequency)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 6, res.Rejected[0].Raw.Line)
	assert.Equal(t, record.ReasonBadTimestamp, res.Rejected[0].Reason)

	s := res.Summary
	assert.Equal(t, 6, s.Read)
	assert.Equal(t, 5, s.Normalized)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, map[record.RejectReason]int{record.ReasonBadTimestamp: 1}, s.RejectedBy)
	assert.Equal(t, map[int]int{2020: 3, 2021: 2}, s.Years)
	assert.Equal(t, 2, s.Chunks)
	assert.Equal(t, "2020-01-01T10:00:00", s.Earliest.String())
	assert.Equal(t, "2021-03-01T10:00:00", s.Latest.String())
	assert.NotEmpty(t, s.RunID.String())
}

func TestRun_CleansDesignatedColumns(t *testing.T) {
	c := newCoordinator(t, nil, 1, 10)
	res, err := c.Run(context.Background(), NewSliceSource(schema, []record.Raw{
		row(1, " <b>Go</b>\n developer ", "RUR", "2020-01-01T10:00:00+0300"),
	}))
	require.NoError(t, err)

	recs := res.Partitions.Records(2020)
	require.Len(t, recs, 1)
	name, _ := recs[0].Get("name")
	area, _ := recs[0].Get("area_name")
	assert.Equal(t, "Go developer", name)
	assert.Equal(t, "Moscow", area)
}

func randomRows(n int, seed uint64) []record.Raw {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	currencies := []string{"RUR", "USD", "EUR", "KZT", "", "rub.", "uah"}
	rows := make([]record.Raw, 0, n)
	for i := 1; i <= n; i++ {
		published := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d+0300",
			2005+rng.IntN(18), 1+rng.IntN(12), 1+rng.IntN(28), rng.IntN(24), rng.IntN(60), rng.IntN(60))
		name := fmt.Sprintf("vacancy %d", i)
		switch rng.IntN(20) {
		case 0:
			published = "not-a-date"
		case 1:
			name = "<br/>"
		}
		rows = append(rows, row(i, name, currencies[rng.IntN(len(currencies))], published))
	}
	return rows
}

func TestRun_MatchesSequentialPass(t *testing.T) {
	rows := randomRows(2500, 42)

	sequential, err := newCoordinator(t, nil, 1, len(rows)).Run(context.Background(), NewSliceSource(schema, rows))
	require.NoError(t, err)
	want := yearLines(sequential)

	for _, workers := range []int{1, 2, 4, 8} {
		for _, chunkSize := range []int{1, 7, 100, 999, 5000} {
			t.Run(fmt.Sprintf("workers=%d/chunk=%d", workers, chunkSize), func(t *testing.T) {
				res, err := newCoordinator(t, nil, workers, chunkSize).Run(context.Background(), NewSliceSource(schema, rows))
				require.NoError(t, err)

				assert.Equal(t, want, yearLines(res))
				assert.Equal(t, sequential.Frequency, res.Frequency)
				assert.Equal(t, sequential.Summary.RejectedBy, res.Summary.RejectedBy)
				assert.Equal(t, sequential.Summary.Unclassified, res.Summary.Unclassified)

				rejectedLines := make([]int, len(res.Rejected))
				for i, rej := range res.Rejected {
					rejectedLines[i] = rej.Raw.Line
				}
				assert.IsIncreasing(t, rejectedLines)

				s := res.Summary
				assert.Equal(t, len(rows), s.Read)
				assert.Equal(t, s.Read, s.Normalized+s.Rejected)
				assert.Equal(t, (len(rows)+chunkSize-1)/chunkSize, s.Chunks)
			})
		}
	}
}

func TestRun_FrequencyCountsClassifiedCurrencies(t *testing.T) {
	rows := []record.Raw{
		row(1, "a", "RUR", "2020-01-01T10:00:00+0300"),
		row(2, "b", "", "2020-01-01T10:00:00+0300"),
		row(3, "c", "rub.", "2020-01-01T10:00:00+0300"),
		row(4, "d", "usd", "2020-01-01T10:00:00+0300"),
		row(5, "e", "USD", "bad"),
	}
	res, err := newCoordinator(t, nil, 3, 2).Run(context.Background(), NewSliceSource(schema, rows))
	require.NoError(t, err)

	assert.Equal(t, frequency.Table{"RUR": 1, "USD": 1}, res.Frequency)
	assert.Equal(t, 2, res.Frequency.Total())
	assert.Equal(t, 1, res.Summary.Unclassified)
}

func TestRun_EmptySource(t *testing.T) {
	res, err := newCoordinator(t, nil, 4, 10).Run(context.Background(), NewSliceSource(schema, nil))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Partitions.Len())
	assert.Empty(t, res.Frequency)
	assert.Equal(t, 0, res.Summary.Read)
	assert.Equal(t, 0, res.Summary.Chunks)
	assert.True(t, res.Summary.Earliest.IsZero())
}

// panickingParser simulates a defect inside a worker.
type panickingParser struct {
	timestamp.Parser
}

func (p panickingParser) Parse(text string) (record.Timestamp, error) {
	if text == "PANIC" {
		panic("parser defect")
	}
	return p.Parser.Parse(text)
}

func TestRun_WorkerDefectFailsRun(t *testing.T) {
	rows := randomRows(200, 7)
	rows[150] = row(151, "x", "RUR", "PANIC")

	parser := panickingParser{Parser: timestamp.CustomParser{}}
	res, err := newCoordinator(t, parser, 4, 10).Run(context.Background(), NewSliceSource(schema, rows))
	require.Error(t, err)
	assert.Nil(t, res)

	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 15, werr.Chunk)

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "parser defect", perr.Value)
}

type failingSource struct {
	*SliceSource
	failAfter int
	served    int
}

func (s *failingSource) Next() (record.Raw, error) {
	if s.served == s.failAfter {
		return record.Raw{}, errors.New("disk on fire")
	}
	s.served++
	return s.SliceSource.Next()
}

func TestRun_ReadErrorFailsRun(t *testing.T) {
	src := &failingSource{SliceSource: NewSliceSource(schema, randomRows(50, 3)), failAfter: 25}
	res, err := newCoordinator(t, nil, 2, 10).Run(context.Background(), src)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "read chunk 2")
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newCoordinator(t, nil, 2, 10).Run(ctx, NewSliceSource(schema, randomRows(50, 5)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestReadChunk(t *testing.T) {
	src := NewSliceSource(schema, randomRows(5, 9))

	rows, err := readChunk(src, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = readChunk(src, 3)
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, rows, 2)
}
