package procedure

import (
	"encoding/json"
	"io"
	"strings"
)

// Resolver assembles positional arguments from declared field names.
type Resolver struct {
	// OnMissing is called for each declared field absent from the request bag.
	OnMissing func(field string)
}

// Resolve builds the argument list for fields.
//
// Explicit values, when non-nil, are used as-is and missing keys become
// nil, keeping one argument per field. Otherwise values come from the
// request bag: each is decoded as JSON when possible, and fields absent
// from the bag are left out of the list entirely, so later arguments
// shift left.
func (r Resolver) Resolve(fields []string, explicit map[string]any, bag map[string]string) Args {
	args := make(Args, 0, len(fields))
	if fields == nil {
		return args
	}

	if explicit != nil {
		for _, f := range fields {
			args = append(args, explicit[f])
		}
		return args
	}

	for _, f := range fields {
		raw, ok := bag[f]
		if !ok {
			if r.OnMissing != nil {
				r.OnMissing(f)
			}
			continue
		}
		args = append(args, decodeValue(raw))
	}
	return args
}

// decodeValue returns the JSON value held by raw, or raw itself when it
// is not exactly one JSON document.
func decodeValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if _, err := dec.Token(); err != io.EOF {
		return raw
	}
	return NormalizeJSON(v)
}

// NormalizeJSON converts json.Number values, at any depth, into int64 when
// integral and float64 otherwise. Integer literals outside the int64 range
// stay decimal text so Postgres can read them as numeric without rounding.
func NormalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if !strings.ContainsAny(x.String(), ".eE") {
			return x.String()
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = NormalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = NormalizeJSON(x[k])
		}
		return x
	default:
		return v
	}
}
