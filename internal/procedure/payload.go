package procedure

import "fmt"

// Mode states how a call surfaces its result.
type Mode int

const (
	// ModeAuto compares the values returned by the driver with the call
	// arguments: equal means a result set must be fetched, different means
	// the returned values are the result.
	ModeAuto Mode = iota
	// ModeResultSet always fetches rows from the call.
	ModeResultSet
	// ModeOutParams always uses the returned in/out values as a single row.
	ModeOutParams
)

var modeNames = map[Mode]string{
	ModeAuto:      "auto",
	ModeResultSet: "resultset",
	ModeOutParams: "out",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAuto, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown mode %q", s)
}

// Shape selects how rows are collapsed into the response value.
type Shape int

const (
	// ShapeCollapse returns a scalar for one row of one column, a flat row
	// for one row, and a list of rows otherwise.
	ShapeCollapse Shape = iota
	// ShapeRows always returns a list of rows.
	ShapeRows
)

func (s Shape) String() string {
	switch s {
	case ShapeCollapse:
		return "collapse"
	case ShapeRows:
		return "rows"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func ParseShape(s string) (Shape, error) {
	switch s {
	case "", "collapse":
		return ShapeCollapse, nil
	case "rows":
		return ShapeRows, nil
	}
	return ShapeCollapse, fmt.Errorf("unknown shape %q", s)
}

// Call describes one procedure invocation.
type Call struct {
	Name string
	// Fields are the declared parameter names, in positional order.
	// Nil means the procedure is called without arguments.
	Fields  []string
	Mode    Mode
	Shape   Shape
	Objects bool // render result-set rows as column->value maps
}

// Args is a positional argument list.
type Args []any

// RawResult holds the rows produced by a call, before normalization.
type RawResult struct {
	Columns []string
	Rows    [][]any
}
