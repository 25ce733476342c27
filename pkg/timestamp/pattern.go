package timestamp

import (
	"regexp"
	"strconv"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

var layoutPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})([+-])(\d{2})(\d{2})$`)

// PatternParser extracts the fields with one precompiled capture pattern.
type PatternParser struct {
	pattern *regexp.Regexp
}

func NewPatternParser() *PatternParser {
	return &PatternParser{pattern: layoutPattern}
}

func (p *PatternParser) Name() string {
	return string(StrategyPattern)
}

func (p *PatternParser) Parse(text string) (record.Timestamp, error) {
	match := p.pattern.FindStringSubmatch(text)
	if match == nil {
		return record.Timestamp{}, malformed(text, "layout mismatch", nil)
	}

	// Groups 1-6 are calendar fields, 7 is the sign, 8-9 the offset.
	var fields [9]int
	for i := 1; i < len(match); i++ {
		if i == 7 {
			continue
		}
		n, err := strconv.Atoi(match[i])
		if err != nil {
			return record.Timestamp{}, malformed(text, "non-numeric field", err)
		}
		fields[i-1] = n
	}
	if !validOffset(fields[7], fields[8]) {
		return record.Timestamp{}, malformed(text, "offset out of range", nil)
	}

	ts, err := record.NewTimestamp(fields[0], fields[1], fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return record.Timestamp{}, malformed(text, "out of range", err)
	}
	return ts, nil
}
