package procedure

// Normalize collapses raw rows into the most compact JSON value.
//
// With ShapeCollapse a single row of a single column becomes that bare
// value and any other single row becomes a flat row. Zero or several rows
// are always a list of rows, and an empty result is an empty list rather
// than null. A one-row one-column table is therefore indistinguishable
// from a scalar.
func Normalize(raw RawResult, shape Shape, objects bool) any {
	named := objects && len(raw.Columns) > 0

	if shape == ShapeCollapse && len(raw.Rows) == 1 {
		row := raw.Rows[0]
		if len(row) == 1 {
			return jsonSafe(row[0])
		}
		return renderRow(row, raw.Columns, named)
	}

	out := make([]any, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		out = append(out, renderRow(row, raw.Columns, named))
	}
	return out
}

func renderRow(row []any, columns []string, named bool) any {
	if named && len(columns) == len(row) {
		m := make(map[string]any, len(row))
		for i, c := range columns {
			m[c] = jsonSafe(row[i])
		}
		return m
	}
	out := make([]any, len(row))
	for i := range row {
		out[i] = jsonSafe(row[i])
	}
	return out
}
