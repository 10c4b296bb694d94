package cli

import (
	"log/slog"

	"github.com/me/sweeply/internal/assignment"
	"github.com/me/sweeply/internal/client"
	"github.com/me/sweeply/internal/logging"
	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/internal/session"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    Config
	logger *slog.Logger

	store  secrets.Store
	api    *client.Client
	sess   *session.Controller
	drafts *assignment.DraftStore
)

// NewRootCmd creates the root cobra command for the sweeply CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sweeply",
		Short: "sweeply — daily cleaning assignments from the terminal",
		Long:  "sweeply lists your daily cleaning assignments, times your work, and files completion reports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(flagConfig)
			if err != nil {
				return err
			}
			if flagServer != "" {
				cfg.Server = flagServer
			}
			if flagDebug {
				flagLogLevel = "debug"
			}
			if flagLogLevel != "" {
				cfg.LogLevel = flagLogLevel
			}
			if flagLogFormat != "" {
				cfg.LogFormat = flagLogFormat
			}
			logger = logging.New(cfg.LogLevel, cfg.LogFormat)

			secretsPath := cfg.SecretsPath
			if secretsPath == "" {
				secretsPath, err = secrets.DefaultPath()
				if err != nil {
					return err
				}
			}
			store = secrets.NewFileStore(secretsPath)
			drafts = assignment.NewDraftStore(store)

			events := client.NewAuthEvents()
			api = client.New(cfg.Server, store, events, logger)
			sess = session.New(api, store, events, nil, logger)
			sess.Start(cmd.Context())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if sess != nil {
				sess.Close()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", "", "API base URL (or SWEEPLY_SERVER env, or config file)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.sweeply/config.toml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newActivateCmd(),
		newWhoamiCmd(),
		newAssignmentsCmd(),
		newStartCmd(),
		newCancelCmd(),
		newCompleteCmd(),
		newReportsCmd(),
		newAdminCmd(),
	)

	return root
}
