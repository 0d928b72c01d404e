/*
Package serializer renders command results and reads operator input files.

Results are written as JSON, YAML, or a flattened two column table:

	w := serializer.NewStdoutWriter(serializer.FormatTable)
	if err := w.Serialize(ctx, result); err != nil {
		return err
	}

Table output flattens nested structs, maps, and slices into dotted keys
(for example Images.[0].Destination) sorted alphabetically.

Input files are decoded by extension. JSON numbers are kept as json.Number
so a fractional port value can be told apart from an integer one:

	ports, err := serializer.FromFile[map[string]any]("ports.json")

Unknown output formats fall back to JSON with a warning.
*/
package serializer
