package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"graphable/internal/declarative"
)

func newApplyCmd() *cobra.Command {
	var (
		file        string
		dryRun      bool
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Import data sources, graphs and dashboards from a YAML document",
		Long:  "Reads a workspace document, compares it with the metadata store and writes the resources that differ.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := declarative.LoadFile(file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			applier := a.Services.Declarative
			plan, err := applier.Plan(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}

			out := cmd.OutOrStdout()
			jsonOut := getOutputFormat(cmd) == "json"
			if dryRun || !plan.HasChanges() {
				if jsonOut {
					return printJSON(out, map[string]any{"plan": plan, "summary": plan.Summary(), "applied": false})
				}
				return printPlan(out, plan)
			}

			if !jsonOut {
				if err := printPlan(out, plan); err != nil {
					return err
				}
			}
			if !autoApprove {
				ok, err := confirm(cmd.InOrStdin(), out, "\nApply these changes? [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(out, "Apply cancelled.")
					return nil
				}
			}

			applied, err := applier.Apply(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(out, map[string]any{"plan": applied, "summary": applied.Summary(), "applied": true})
			}
			s := applied.Summary()
			_, err = fmt.Fprintf(out, "\nApply complete: %d created, %d updated.\n", s.Creates, s.Updates)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workspace YAML document")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without writing anything")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML document without touching the metadata store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := declarative.LoadFile(file)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"valid":       true,
					"workspace":   doc.Workspace,
					"dataSources": len(doc.DataSources),
					"graphs":      len(doc.Graphs),
					"dashboards":  len(doc.Dashboards),
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d data sources, %d graphs, %d dashboards)\n",
				file, len(doc.DataSources), len(doc.Graphs), len(doc.Dashboards))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workspace YAML document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// confirm prompts on out and reads a yes/no answer. It refuses to wait on a
// terminal-less stdin so scripted runs must pass --auto-approve.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
	}
	_, _ = fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}
