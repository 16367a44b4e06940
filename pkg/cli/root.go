// Package cli implements the graphable command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"graphable/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// errReported fails a command whose output already describes the failure.
var errReported = errors.New("failure already reported")

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errReported) {
			return 1
		}
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{"error": err.Error()}
			if status := errorStatus(err); status != 0 {
				errObj["http_status"] = status
			}
			_ = printJSON(stdout, errObj)
		} else {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				for _, e := range ve.Errors {
					_, _ = fmt.Fprintf(stderr, "  - %s\n", e)
				}
			}
		}
		return 1
	}
	return 0
}

// errorStatus maps domain errors to the status the HTTP API would return.
func errorStatus(err error) int {
	var (
		nf *domain.NotFoundError
		ve *domain.ValidationError
		ad *domain.AccessDeniedError
		ni *domain.NotImplementedError
		ee *domain.ExecutionError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ad):
		return http.StatusForbidden
	case errors.As(err, &ni):
		return http.StatusNotImplemented
	case errors.As(err, &ee):
		return http.StatusBadGateway
	default:
		return 0
	}
}

func newRootCmd() *cobra.Command {
	var output string

	rootCmd := &cobra.Command{
		Use:           "graphable",
		Short:         "Graphable query execution service",
		Long:          "Runs the Graphable HTTP API and manages graphs, dashboards and data source secrets in its metadata store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	pf.StringP("config", "c", "", "Path to a YAML config file")
	pf.String("meta-db-path", "", "SQLite metadata store path")
	pf.String("encryption-key", "", "64 hex character key sealing locally stored secrets")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("env", "", "Deployment environment (development, production)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newValidateSQLCmd())
	rootCmd.AddCommand(newSecretCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": version, "commit": commit})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "graphable %s (%s)\n", version, commit)
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
