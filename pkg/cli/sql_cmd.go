package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"graphable/internal/sqlrewrite"
)

func newValidateSQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-sql <sql|->",
		Short: "Check SQL against the read-only query rules",
		Long:  "Validates one statement the way graph execution does. Pass - to read the statement from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql := args[0]
			if sql == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				sql = string(b)
			}

			res := sqlrewrite.Validate(sql)
			if getOutputFormat(cmd) == "json" {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Valid {
					return errReported
				}
				return nil
			}
			if !res.Valid {
				return errors.New(res.Error)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return err
		},
	}
}
