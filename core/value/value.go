// Package value defines the portable data carriers the recorder can
// serialize into replayable expressions: dense and masked numeric arrays,
// labeled one- and two-dimensional structures, date/time values, and
// order-preserving containers.
package value

import (
	"fmt"
	"time"
)

type Dtype string

const (
	Float64 Dtype = "float64"
	Int64   Dtype = "int64"
	Bool    Dtype = "bool"
)

// NDArray is a dense numeric array in row-major order. Exactly one of the
// backing slices is populated, matching Dtype.
type NDArray struct {
	Shape    []int
	Dtype    Dtype
	Float64s []float64
	Int64s   []int64
	Bools    []bool
}

func NewFloat64s(data []float64, shape ...int) NDArray {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return NDArray{Shape: shape, Dtype: Float64, Float64s: data}
}

func NewInt64s(data []int64, shape ...int) NDArray {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return NDArray{Shape: shape, Dtype: Int64, Int64s: data}
}

func NewBools(data []bool, shape ...int) NDArray {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return NDArray{Shape: shape, Dtype: Bool, Bools: data}
}

// Count returns the number of elements implied by Shape.
func (a NDArray) Count() int {
	count := 1
	for _, dim := range a.Shape {
		count *= dim
	}
	return count
}

// Validate checks that the backing slice length matches Shape.
func (a NDArray) Validate() error {
	want := a.Count()
	var got int
	switch a.Dtype {
	case Float64:
		got = len(a.Float64s)
	case Int64:
		got = len(a.Int64s)
	case Bool:
		got = len(a.Bools)
	default:
		return fmt.Errorf("unsupported dtype %q", a.Dtype)
	}
	if got != want {
		return fmt.Errorf("shape %v implies %d elements, have %d", a.Shape, want, got)
	}
	return nil
}

// MaskedArray pairs dense data with a boolean mask of the same shape; a
// true mask entry marks the position as invalid.
type MaskedArray struct {
	Data NDArray
	Mask NDArray
}

func (m MaskedArray) Validate() error {
	if err := m.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := m.Mask.Validate(); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if m.Mask.Dtype != Bool {
		return fmt.Errorf("mask dtype must be bool, got %q", m.Mask.Dtype)
	}
	if m.Data.Count() != m.Mask.Count() {
		return fmt.Errorf("data/mask element counts differ: %d vs %d", m.Data.Count(), m.Mask.Count())
	}
	return nil
}

type SeriesKind string

const (
	SeriesPlain       SeriesKind = "plain"
	SeriesDatetime    SeriesKind = "datetime"
	SeriesCategorical SeriesKind = "categorical"
)

// Series is a one-dimensional labeled sequence with an index.
type Series struct {
	Name      string
	IndexName string
	Index     []string
	Values    []any
	Kind      SeriesKind
}

// Frame is a two-dimensional labeled table; Cells is row-major with one
// row per index label.
type Frame struct {
	IndexName string
	Index     []string
	Columns   []string
	Cells     [][]any
}

// DatetimeIndex is an ordered sequence of timestamps with no other columns.
type DatetimeIndex struct {
	Times []time.Time
}

// Categorical is a sequence drawn from a finite label set.
type Categorical struct {
	Values []string
}

// Tuple renders as a fixed-size literal tuple; a one-element Tuple keeps a
// trailing separator so replay parses it as a tuple, not a grouping.
type Tuple []any

// Dict is an insertion-ordered mapping.
type Dict struct {
	Pairs []DictPair
}

type DictPair struct {
	Key   any
	Value any
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Timestamp is a labeled point-in-time value replayed through the
// consumer's timestamp constructor rather than the plain datetime one.
type Timestamp struct {
	Time time.Time
}
