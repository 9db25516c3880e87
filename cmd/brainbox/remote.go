package main

import (
	"github.com/spf13/cobra"

	"brainbox/internal/client"
	"brainbox/internal/service"
)

type remoteFlags struct {
	url      string
	username string
	password string
}

func newRemoteCmd() *cobra.Command {
	flags := &remoteFlags{}

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Export or import through a running server's API",
	}
	cmd.PersistentFlags().StringVar(&flags.url, "url", "http://localhost:8080", "server base URL")
	cmd.PersistentFlags().StringVar(&flags.username, "username", "", "username or email")
	cmd.PersistentFlags().StringVar(&flags.password, "password", "", "password")
	_ = cmd.MarkPersistentFlagRequired("username")
	_ = cmd.MarkPersistentFlagRequired("password")

	cmd.AddCommand(newRemoteExportCmd(flags), newRemoteImportCmd(flags))
	return cmd
}

func (f *remoteFlags) login(cmd *cobra.Command) (*client.Client, error) {
	c, err := client.New(f.url, nil)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(cmd.Context(), f.username, f.password); err != nil {
		return nil, err
	}
	return c, nil
}

func newRemoteExportCmd(flags *remoteFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the account export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.login(cmd)
			if err != nil {
				return err
			}
			snap, err := c.Export(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, snap)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newRemoteImportCmd(flags *remoteFlags) *cobra.Command {
	var file, policy string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upload an export file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readImportFile(file)
			if err != nil {
				return err
			}
			c, err := flags.login(cmd)
			if err != nil {
				return err
			}
			report, err := c.Import(cmd.Context(), *doc, service.ImportPolicy(policy))
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "export file to import")
	cmd.Flags().StringVar(&policy, "policy", "", "skip or abort on a bad row (default: server setting)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
