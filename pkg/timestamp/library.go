package timestamp

import (
	"time"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

// LibraryParser delegates to time.Parse.
type LibraryParser struct{}

func (LibraryParser) Name() string {
	return string(StrategyLibrary)
}

func (LibraryParser) Parse(text string) (record.Timestamp, error) {
	// time.Parse accepts fractional seconds the layout does not mention.
	if len(text) != layoutLen {
		return record.Timestamp{}, malformed(text, "wrong length", nil)
	}
	t, err := time.Parse(Layout, text)
	if err != nil {
		return record.Timestamp{}, malformed(text, "layout mismatch", err)
	}
	// time.Parse tolerates offsets up to +24:60. Digits are already checked,
	// so a byte comparison is enough.
	if text[20:22] > "23" || text[22:24] > "59" {
		return record.Timestamp{}, malformed(text, "offset out of range", nil)
	}

	// Date and Clock read the fields in the parsed offset, so the wall clock
	// of the cell is kept as written.
	year, month, day := t.Date()
	hour, minute, second := t.Clock()
	ts, err := record.NewTimestamp(year, int(month), day, hour, minute, second)
	if err != nil {
		return record.Timestamp{}, malformed(text, "out of range", err)
	}
	return ts, nil
}
