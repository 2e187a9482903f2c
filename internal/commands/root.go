// Package commands wires the view-models to a cobra CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"laundryadmin/internal/backend"
	"laundryadmin/internal/config"
	"laundryadmin/internal/gateway"
	"laundryadmin/internal/log"
)

// app holds the collaborators shared by every subcommand, built once in
// the root command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	gw     gateway.Gateway
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "laundryadmin",
		Short: "Administer laundry-service jobs, expenses and transactions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().String("backend", "", `gateway backend, "rest" or "memory" (overrides LAUNDRY_BACKEND)`)
	rootCmd.PersistentFlags().String("base-url", "", "backend base URL (overrides LAUNDRY_BASE_URL)")
	rootCmd.PersistentFlags().String("profile", "", "installation profile name (overrides LAUNDRY_PROFILE)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newJobsCommand(a))
	rootCmd.AddCommand(newTransactionsCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	// .env support for local development; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("profile"); v != "" {
		cfg.Profile = v
	}
	if err := cfg.ApplyProfile(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})

	gw, err := backend.CreateGateway(backend.Config{
		Type:     backend.Type(cfg.Backend),
		BaseURL:  cfg.BaseURL,
		APIToken: cfg.APIToken,
		Timeout:  cfg.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.gw = gw
	return nil
}
