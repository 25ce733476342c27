package timestamp

import "github.com/zedaster/UrfuHhParser/pkg/record"

// CustomParser slices the fixed layout at known offsets and accumulates the
// digits by hand.
//
//	2022-07-05T20:45:58+0300
//	0   4  7  10 13 16 19  24
type CustomParser struct{}

func (CustomParser) Name() string {
	return string(StrategyCustom)
}

func (CustomParser) Parse(text string) (record.Timestamp, error) {
	if len(text) != layoutLen {
		return record.Timestamp{}, malformed(text, "wrong length", nil)
	}
	if text[4] != '-' || text[7] != '-' || text[10] != 'T' || text[13] != ':' || text[16] != ':' ||
		(text[19] != '+' && text[19] != '-') {
		return record.Timestamp{}, malformed(text, "wrong separator", nil)
	}

	year, ok1 := digits(text, 0, 4)
	month, ok2 := digits(text, 5, 7)
	day, ok3 := digits(text, 8, 10)
	hour, ok4 := digits(text, 11, 13)
	minute, ok5 := digits(text, 14, 16)
	second, ok6 := digits(text, 17, 19)
	offsetHours, ok7 := digits(text, 20, 22)
	offsetMinutes, ok8 := digits(text, 22, 24)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return record.Timestamp{}, malformed(text, "non-numeric field", nil)
	}
	if !validOffset(offsetHours, offsetMinutes) {
		return record.Timestamp{}, malformed(text, "offset out of range", nil)
	}

	ts, err := record.NewTimestamp(year, month, day, hour, minute, second)
	if err != nil {
		return record.Timestamp{}, malformed(text, "out of range", err)
	}
	return ts, nil
}

func digits(s string, from, to int) (int, bool) {
	n := 0
	for i := from; i < to; i++ {
		d := s[i] - '0'
		if d > 9 {
			return 0, false
		}
		n = n*10 + int(d)
	}
	return n, true
}
