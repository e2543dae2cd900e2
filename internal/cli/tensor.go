package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/ui"
)

func newTensorCommand(e *env) *cobra.Command {
	var (
		rows, cols string
		maxSize    int
		summary    bool
	)
	cmd := &cobra.Command{
		Use:   "tensor <id>",
		Short: "Fetch the data of a tensor, or a row/column slice of it",
		Args:  exactArgs(1, "a tensor id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := e.commandContext(cmd)
			id := args[0]
			client := e.app.Backend()

			if summary {
				s, err := client.TensorSummary(ctx, id)
				if err != nil {
					return err
				}
				printSummary(e, *s)
				return nil
			}

			if rows == "" && cols == "" {
				data, err := client.TensorData(ctx, id, maxSize)
				if err != nil {
					return err
				}
				e.printf("%s %s %s\n", ui.Brand.Sprint(data.ID), shapeString(data.Shape), ui.Subtle.Sprint(data.DType))
				return printRows(e, data.Data)
			}

			var req model.SliceRequest
			var err error
			if req.RowStart, req.RowEnd, err = parseRange(rows); err != nil {
				return usageError("--rows: %v", err)
			}
			if req.ColStart, req.ColEnd, err = parseRange(cols); err != nil {
				return usageError("--cols: %v", err)
			}
			slice, err := client.TensorSlice(ctx, id, req)
			if err != nil {
				return err
			}
			e.printf("%s %s of %s rows %d:%d cols %d:%d\n",
				ui.Brand.Sprint(slice.ID), shapeString(slice.SliceShape), shapeString(slice.FullShape),
				slice.RowRange[0], slice.RowRange[1], slice.ColRange[0], slice.ColRange[1])
			return printRows(e, slice.Data)
		},
	}
	cmd.Flags().StringVar(&rows, "rows", "", "Row range start:end; either side may be omitted.")
	cmd.Flags().StringVar(&cols, "cols", "", "Column range start:end; either side may be omitted.")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Largest tensor, in elements, fetched in full (default 10000).")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print the tensor summary instead of its data.")
	return cmd
}

// parseRange parses "a:b", "a:", ":b", "a" or "" into a start and an
// optional end.
func parseRange(s string) (int, *int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil, nil
	}
	startStr, endStr, hasColon := strings.Cut(s, ":")
	start := 0
	if startStr != "" {
		n, err := strconv.Atoi(startStr)
		if err != nil || n < 0 {
			return 0, nil, fmt.Errorf("invalid start %q", startStr)
		}
		start = n
	}
	if !hasColon {
		end := start + 1
		return start, &end, nil
	}
	if endStr == "" {
		return start, nil, nil
	}
	end, err := strconv.Atoi(endStr)
	if err != nil || end < start {
		return 0, nil, fmt.Errorf("invalid end %q", endStr)
	}
	return start, &end, nil
}

func shapeString(shape []int) string {
	return model.TensorSummary{Shape: shape}.ShapeString()
}

func printRows(e *env, rows []any) error {
	for _, row := range rows {
		data, err := sonic.ConfigStd.Marshal(row)
		if err != nil {
			return err
		}
		e.printf("  %s\n", data)
	}
	return nil
}

func printSummary(e *env, s model.TensorSummary) {
	e.printf("%s %s %s %s\n", ui.Brand.Sprint(s.ID), s.Kind, shapeString(s.Shape), ui.Subtle.Sprint(s.DType))
	for _, name := range sortedKeys(s.Stats) {
		e.printf("  %s = %v\n", name, s.Stats[name])
	}
}
