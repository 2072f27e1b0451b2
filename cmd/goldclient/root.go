package main

import (
	"context"
	"os"

	"github.com/egaotan/solana-gold/app"
	"github.com/egaotan/solana-gold/config"
	"github.com/egaotan/solana-gold/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	workSpace  string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "goldclient",
		Short:         "Client for the gold-backed token program",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", config.ConfigFile, "config file")
	rootCmd.PersistentFlags().StringVarP(&flags.workSpace, "workspace", "w", "", "change to this directory first")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(stateCmd(flags))
	rootCmd.AddCommand(balancesCmd(flags))
	rootCmd.AddCommand(addressesCmd(flags))
	for _, def := range operationCmds {
		rootCmd.AddCommand(operationCmd(flags, def))
	}
	return rootCmd
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	if flags.workSpace != "" {
		if err := os.Chdir(flags.workSpace); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}
	if flags.workSpace != "" {
		cfg.WorkSpace = flags.workSpace
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return utils.NewConsoleLog(cfg.LogLevel, cfg.LogFormat)
}

// newApp builds the client and connects the configured wallet.
func newApp(ctx context.Context, flags *rootFlags) (*app.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return app.NewApp(ctx, cfg, newLogger(cfg))
}
