package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"graphable/internal/declarative"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func printPlan(w io.Writer, plan *declarative.Plan) error {
	rows := make([][]string, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		rows = append(rows, []string{string(a.Operation), string(a.Kind), a.ID, a.Name})
	}
	if err := printTable(w, []string{"operation", "kind", "id", "name"}, rows); err != nil {
		return err
	}
	s := plan.Summary()
	_, err := fmt.Fprintf(w, "\nPlan for workspace %q: %d to create, %d to update, %d unchanged.\n",
		plan.Workspace, s.Creates, s.Updates, s.Unchanged)
	return err
}

// printRows renders query rows with one column per result column; nil
// cells print empty.
func printRows(w io.Writer, columns []string, data []map[string]any) error {
	rows := make([][]string, 0, len(data))
	for _, d := range data {
		r := make([]string, len(columns))
		for i, c := range columns {
			if v, ok := d[c]; ok && v != nil {
				r[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, r)
	}
	return printTable(w, columns, rows)
}
