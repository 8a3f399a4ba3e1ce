package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderNotFound is returned when no row within the scan depth
	// carries the structural marker.
	ErrHeaderNotFound = errors.New("header row not found")
	// ErrEmptySegmentSet means the header produced no column segments.
	// Callers report it as "no records", not as a failure.
	ErrEmptySegmentSet = errors.New("no column segments")
	// ErrMalformedCell is recovered locally by the parser and only
	// surfaces in counters and debug logs.
	ErrMalformedCell          = errors.New("malformed cell")
	ErrAmbiguousForecastInput = errors.New("ambiguous forecast input")
	ErrInvalidTransaction     = errors.New("invalid transaction")
	ErrNotFound               = errors.New("not found")
	// ErrWorkbookRejected is returned when no sheet of a workbook could be read.
	ErrWorkbookRejected = errors.New("no readable sheet in workbook")
)

// ForecastParamError names the forecast parameter that was rejected.
type ForecastParamError struct {
	Param string
	Value int
}

func (e *ForecastParamError) Error() string {
	return fmt.Sprintf("%s: %s must be positive, got %d", ErrAmbiguousForecastInput, e.Param, e.Value)
}

func (e *ForecastParamError) Unwrap() error {
	return ErrAmbiguousForecastInput
}

// SheetError wraps a failure that happened while processing one sheet.
type SheetError struct {
	Sheet string
	Stage string // "header", "segment", "extract", "sink"
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (%s): %v", e.Sheet, e.Stage, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheet, stage string, err error) *SheetError {
	return &SheetError{Sheet: sheet, Stage: stage, Err: err}
}
