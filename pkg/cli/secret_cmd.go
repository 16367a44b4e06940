package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"graphable/internal/domain"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage data source credentials",
	}
	cmd.AddCommand(newSecretPutCmd())
	cmd.AddCommand(newSecretRefCmd())
	return cmd
}

func newSecretPutCmd() *cobra.Command {
	var workspace, dataSource, fromFile string

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store connection credentials for a data source in the local secret store",
		Long: "Reads a JSON object {host,port,database,user,password,ssl} or a postgresql:// URI from --from-file, " +
			"a terminal prompt or stdin, seals it and points the data source at the new version.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readPayload(cmd, fromFile)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			ref, err := a.Services.Secrets.PutSecret(cmd.Context(), workspace, dataSource, payload)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), ref)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s version %s\n", ref.SecretName, ref.Version)
			return err
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&dataSource, "datasource", "", "Data source ID")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "Read the payload from a file")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("datasource")
	return cmd
}

func newSecretRefCmd() *cobra.Command {
	var (
		workspace, dataSource string
		ref                   domain.SecretReference
	)

	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Point a data source at a secret held by an external provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if err := a.Services.Secrets.SetReference(cmd.Context(), workspace, dataSource, ref); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), ref)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Data source %s now uses %s secret %s\n", dataSource, ref.Provider, ref.SecretName)
			return err
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&dataSource, "datasource", "", "Data source ID")
	cmd.Flags().StringVar(&ref.Provider, "provider", "", "Secret provider (local, env, aws-s3, azure-blob, gcs)")
	cmd.Flags().StringVar(&ref.VaultURL, "vault-url", "", "Provider location, for example s3://bucket/prefix")
	cmd.Flags().StringVar(&ref.SecretName, "secret-name", "", "Secret name within the provider")
	cmd.Flags().StringVar(&ref.Version, "version", "", "Pinned secret version")
	for _, f := range []string{"workspace", "datasource", "provider", "secret-name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// readPayload reads the secret from path, an interactive no-echo prompt or
// piped stdin, in that order.
func readPayload(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	in := cmd.InOrStdin()
	switch f, isFile := in.(*os.File); {
	case path != "":
		b, err = os.ReadFile(path) //nolint:gosec // operator-supplied path
	case isFile && term.IsTerminal(int(f.Fd())): //nolint:gosec // fd fits in int
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Connection payload: ")
		b, err = term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	default:
		b, err = io.ReadAll(in)
	}
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	payload := strings.TrimSpace(string(b))
	if payload == "" {
		return "", domain.ErrValidation("payload is empty")
	}
	return payload, nil
}
