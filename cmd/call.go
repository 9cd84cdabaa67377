package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"moresql-service/internal/procedure"
)

type callFlags struct {
	fields  []string
	values  string
	params  []string
	mode    string
	shape   string
	objects bool
}

func newCallCmd() *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "call <procedure>",
		Short: "Invoke one procedure and print its JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call, explicit, bag, err := f.build(args[0], cmd.Flags().Changed("field"))
			if err != nil {
				return err
			}

			rt, err := newStack(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			out, err := rt.service.Render(cmd.Context(), call, 0, explicit, bag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&f.fields, "field", nil, "declared parameter name, in order (repeatable)")
	cmd.Flags().StringVar(&f.values, "values", "", "JSON object of explicit argument values")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "request parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&f.mode, "mode", "auto", "call mode: auto, resultset or out")
	cmd.Flags().StringVar(&f.shape, "shape", "collapse", "result shape: collapse or rows")
	cmd.Flags().BoolVar(&f.objects, "objects", false, "render rows as column->value objects")
	return cmd
}

// build turns the flags into a call. Fields stay nil unless --field was
// given, so the procedure is called without arguments.
func (f callFlags) build(name string, hasFields bool) (procedure.Call, map[string]any, map[string]string, error) {
	if err := procedure.ValidateProcedureName(name); err != nil {
		return procedure.Call{}, nil, nil, err
	}
	mode, err := procedure.ParseMode(f.mode)
	if err != nil {
		return procedure.Call{}, nil, nil, err
	}
	shape, err := procedure.ParseShape(f.shape)
	if err != nil {
		return procedure.Call{}, nil, nil, err
	}
	call := procedure.Call{Name: name, Mode: mode, Shape: shape, Objects: f.objects}
	if hasFields {
		call.Fields = f.fields
	}

	var explicit map[string]any
	if f.values != "" {
		dec := json.NewDecoder(strings.NewReader(f.values))
		dec.UseNumber()
		if err := dec.Decode(&explicit); err != nil {
			return procedure.Call{}, nil, nil, fmt.Errorf("--values: %w", err)
		}
		if explicit == nil {
			explicit = map[string]any{}
		}
		explicit = procedure.NormalizeJSON(explicit).(map[string]any)
	}

	bag := make(map[string]string, len(f.params))
	for _, p := range f.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return procedure.Call{}, nil, nil, fmt.Errorf("--param %q: expected key=value", p)
		}
		bag[k] = v
	}
	return call, explicit, bag, nil
}
