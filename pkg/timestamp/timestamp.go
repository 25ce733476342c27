// Package timestamp parses the fixed vacancy publication layout
// YYYY-MM-DDTHH:MM:SS±HHMM (for example 2022-07-05T20:45:58+0300) into a
// record.Timestamp.
//
// Three interchangeable strategies implement Parser. They accept and reject
// exactly the same inputs and return identical values; they differ only in
// speed. A strategy is chosen once per run with New.
package timestamp

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zedaster/UrfuHhParser/pkg/record"
)

// Layout is the reference layout understood by every strategy, in the
// notation of the time package.
const Layout = "2006-01-02T15:04:05-0700"

const layoutLen = len(Layout)

var (
	ErrMalformed       = errors.New("malformed timestamp")
	ErrUnknownStrategy = errors.New("unknown timestamp strategy")
)

type Strategy string

const (
	StrategyLibrary Strategy = "library"
	StrategyPattern Strategy = "pattern"
	StrategyCustom  Strategy = "custom"
)

// DefaultStrategy was the fastest of the three in offline calibration.
const DefaultStrategy = StrategyLibrary

type Parser interface {
	Parse(text string) (record.Timestamp, error)
	Name() string
}

// ParseError describes why a cell was not a timestamp. It always wraps
// ErrMalformed.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}

func malformed(input, reason string, err error) *ParseError {
	return &ParseError{Input: input, Reason: reason, Err: err}
}

// New returns the parser for strategy.
func New(strategy Strategy) (Parser, error) {
	switch strategy {
	case StrategyLibrary:
		return LibraryParser{}, nil
	case StrategyPattern:
		return NewPatternParser(), nil
	case StrategyCustom:
		return CustomParser{}, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownStrategy, strategy, Strategies())
}

func Strategies() []Strategy {
	return []Strategy{StrategyLibrary, StrategyPattern, StrategyCustom}
}

func IsValid(strategy Strategy) bool {
	return slices.Contains(Strategies(), strategy)
}

// The offset is validated but never applied.
func validOffset(hours, minutes int) bool {
	return hours >= 0 && hours <= 23 && minutes >= 0 && minutes <= 59
}
