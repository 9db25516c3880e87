package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"brainbox/internal/service"
)

func newExportCmd(a *app) *cobra.Command {
	var username, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one account's projects, tasks and settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openServices()
			if err != nil {
				return err
			}
			defer svc.store.Close()

			ctx := cmd.Context()
			actor, err := svc.auth.ActorForUsername(ctx, username)
			if err != nil {
				return err
			}
			snap, err := svc.data.Export(ctx, actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, snap)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "account username")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var username, file, policy string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge an export file into one account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readImportFile(file)
			if err != nil {
				return err
			}

			svc, err := a.openServices()
			if err != nil {
				return err
			}
			defer svc.store.Close()

			p, err := service.ParseImportPolicy(policy, svc.data.DefaultPolicy())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			actor, err := svc.auth.ActorForUsername(ctx, username)
			if err != nil {
				return err
			}
			report, err := svc.data.Import(ctx, actor, *doc, p)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "account username")
	cmd.Flags().StringVar(&file, "file", "", "export file to import")
	cmd.Flags().StringVar(&policy, "policy", "", "skip or abort on a bad row (default from config)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readImportFile(path string) (*service.ImportDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc service.ImportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

func writeJSON(stdout io.Writer, path string, v any) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *service.ImportReport) {
	fmt.Fprintf(w, "policy %s: %d project(s), %d task(s) imported", report.Policy, report.Imported.Projects, report.Imported.Tasks)
	if report.Imported.Settings {
		fmt.Fprint(w, ", settings imported")
	}
	fmt.Fprintf(w, ", %d skipped\n", report.Skipped)
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  skipped %s %q: %s\n", f.Entity, f.ID, f.Reason)
	}
}
