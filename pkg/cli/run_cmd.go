package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"graphable/internal/domain"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Work with stored graphs",
	}
	cmd.AddCommand(newGraphRunCmd())
	return cmd
}

func newGraphRunCmd() *cobra.Command {
	var (
		workspace, graphID string
		rawParams          []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a stored graph and print its rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			res, err := a.Services.Graphs.ExecuteGraph(cmd.Context(), workspace, graphID, params)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printRows(cmd.OutOrStdout(), res.Columns, res.Data)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&graphID, "graph", "", "Graph ID")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "Parameter value as name=value; repeat for arrays")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Work with stored dashboards",
	}
	cmd.AddCommand(newDashboardRunCmd())
	return cmd
}

func newDashboardRunCmd() *cobra.Command {
	var (
		workspace, dashboardID string
		rawParams              []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute every tile of a dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			res, err := a.Services.Graphs.ExecuteDashboard(cmd.Context(), workspace, dashboardID, params)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			rows := make([][]string, 0, len(res.Tiles))
			for _, t := range res.Tiles {
				status := fmt.Sprintf("%d rows", len(t.Data))
				if t.Error != "" {
					status = "error: " + t.Error
				}
				rows = append(rows, []string{t.TileID, t.GraphRef, t.Position.String(), status})
			}
			return printTable(cmd.OutOrStdout(), []string{"tile", "graph", "position", "result"}, rows)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&dashboardID, "dashboard", "", "Dashboard ID")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "Global parameter value as name=value; repeat for arrays")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("dashboard")
	return cmd
}

// parseParams turns name=value flags into parameter values. Values stay
// strings and are coerced against the graph's parameter schema; a name given
// more than once becomes a list.
func parseParams(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, domain.ErrValidation("parameter %q must be name=value", kv)
		}
		switch cur := out[name].(type) {
		case nil:
			out[name] = value
		case string:
			out[name] = []any{cur, value}
		case []any:
			out[name] = append(cur, value)
		}
	}
	return out, nil
}
