// Package commands contains all CLI command definitions.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// settings are the environment-driven defaults; flags override them.
type settings struct {
	ConfigPath string `env:"EDIKIT_CONFIG" envDefault:"edikit.yaml"`
	LogLevel   string `env:"EDIKIT_LOG_LEVEL" envDefault:"info"`
	NoColor    bool   `env:"EDIKIT_NO_COLOR"`
}

// Execute loads environment defaults and runs the root command.
func Execute() error {
	_ = godotenv.Load()

	var s settings
	if err := env.Parse(&s); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	setupLogging(s.LogLevel)

	return NewRootCmd(&s).Execute()
}

// NewRootCmd creates and returns the root command for the CLI.
func NewRootCmd(s *settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "edikit",
		Short:         "Convert and validate EDIFACT messages of the German energy market",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&s.ConfigPath, "config", s.ConfigPath, "configuration file")

	registerConvertCmd(rootCmd, s)
	registerReverseCmd(rootCmd, s)
	registerValidateCmd(rootCmd, s)
	registerBatchCmd(rootCmd, s)

	return rootCmd
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
