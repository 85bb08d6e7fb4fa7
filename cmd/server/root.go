package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/recipebox/internal/config"
	"github.com/sakif/recipebox/internal/repository/sqlstore"
	"github.com/sakif/recipebox/internal/server"
)

// app carries what every subcommand needs once flags have been parsed.
type app struct {
	configFile string
	v          *viper.Viper
	stdout     io.Writer
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	a := &app{stdout: os.Stdout}

	root := &cobra.Command{
		Use:   "recipebox",
		Short: "Recipe favorites API server",
		Long: `recipebox serves a JSON API for user accounts and saved favorite recipes,
and proxies recipe search to the Spoonacular catalogue.

Configuration comes from flags, environment variables (PORT, DB_DRIVER,
DATABASE_URL, JWT_SECRET, ...) and an optional --config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(a.configFile)
			if err != nil {
				return err
			}
			a.v = v
			a.stdout = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, toml, json or .env)")

	serve := a.serveCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, a.migrateCmd())
	return root
}

// =========================================================================
// serve
// =========================================================================

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f := cmd.Flags().Lookup("port"); f != nil {
				if err := a.v.BindPFlag(config.KeyPort, f); err != nil {
					return err
				}
			}

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			logger := newLogger(a.stdout, cfg.AppEnv, cfg.LogLevel)

			// The pool is opened once here and handed to the server,
			// which closes it on shutdown.
			store, err := sqlstore.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			if err := store.MigrateUp(cmd.Context()); err != nil {
				store.Close()
				return err
			}

			srv, err := server.New(cfg, store, logger)
			if err != nil {
				store.Close()
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 3000, "port to listen on (overrides PORT)")
	return cmd
}

// =========================================================================
// migrate
// =========================================================================

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	steps := []struct {
		use, short string
		run        func(s *sqlstore.Store, cmd *cobra.Command) error
	}{
		{"up", "Apply all pending migrations", func(s *sqlstore.Store, cmd *cobra.Command) error {
			return s.MigrateUp(cmd.Context())
		}},
		{"down", "Roll back the most recent migration", func(s *sqlstore.Store, cmd *cobra.Command) error {
			return s.MigrateDown(cmd.Context())
		}},
		{"status", "Print which migrations are applied", func(s *sqlstore.Store, cmd *cobra.Command) error {
			return s.MigrationStatus(cmd.Context())
		}},
	}

	for _, step := range steps {
		cmd.AddCommand(&cobra.Command{
			Use:   step.use,
			Short: step.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.LoadDatabase(a.v)
				if err != nil {
					return err
				}
				logger := newLogger(a.stdout, a.v.GetString(config.KeyAppEnv), a.v.GetString(config.KeyLogLevel))

				store, err := sqlstore.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL, logger)
				if err != nil {
					return err
				}
				defer store.Close()

				if err := step.run(store, cmd); err != nil {
					return fmt.Errorf("migrate %s: %w", step.use, err)
				}
				return nil
			},
		})
	}
	return cmd
}

// newLogger builds the process logger: human-readable text in
// development, JSON everywhere else so log shippers can parse it.
func newLogger(w io.Writer, appEnv, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if appEnv == config.EnvDevelopment {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
