package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"brainbox/internal/config"
	"brainbox/internal/logging"
	"brainbox/internal/repository"
	"brainbox/internal/service"
)

type app struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "brainbox",
		Short:        "Personal projects, tasks and a day timeline",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the API server (and the Telegram bot when telegram.token is set)
  brainbox serve --config brainbox.yaml

  # Offline backup of one account
  brainbox export --user alice --out alice.json
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(
		newServeCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newRemoteCmd(),
	)
	return cmd
}

// services holds everything wired over one database.
type services struct {
	store    *repository.Store
	auth     *service.AuthService
	projects *service.ProjectService
	tasks    *service.TaskService
	data     *service.DataService
	summary  *service.SummaryService
}

func (a *app) openServices() (*services, error) {
	db, err := repository.NewDB(a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db)

	policy, err := service.ParseImportPolicy(a.cfg.Import.Policy, service.ImportSkip)
	if err != nil {
		return nil, err
	}

	return &services{
		store: store,
		auth: service.NewAuthService(store, nil, service.AuthOptions{
			RegistrationCode: a.cfg.Auth.RegistrationCode,
			VerificationTTL:  a.cfg.Auth.VerificationTTL,
			SessionTTL:       a.cfg.Auth.SessionTTL,
		}),
		projects: service.NewProjectService(store, nil),
		tasks:    service.NewTaskService(store, nil),
		data:     service.NewDataService(store, nil, policy),
		summary:  service.NewSummaryService(store),
	}, nil
}
