// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scholarly CLI, a thin command
// surface over the scholar library: search, cited-by listing, and the
// local record archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholarly/internal/scholar"
	"github.com/pdiddy/scholarly/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the scholarly CLI.
var rootCmd = &cobra.Command{
	Use:   "scholarly",
	Short: "Query Google Scholar from the command line",
	Long: `scholarly searches Google Scholar for publications, lists the works
citing a publication, and optionally fills records with their full BibTeX
entry. Requests are paced to look like a human reader. When the host asks
for a verification challenge the image link is printed and the answer is
read from standard input.

Settings come from scholarly.yaml (./ or ~/.config/scholarly/), SCHOLARLY_*
environment variables, and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scholarly.yaml or ~/.config/scholarly/scholarly.yaml)")
	rootCmd.PersistentFlags().String("host", "", "search host URL (default https://scholar.google.com)")
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scholarly")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scholarly"))
		}
	}

	setConfigDefaults(viper.GetViper())
	viper.SetEnvPrefix("SCHOLARLY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setConfigDefaults registers every configuration key so that environment
// variables are picked up by Unmarshal.
func setConfigDefaults(v *viper.Viper) {
	d := types.DefaultScholarConfig()
	v.SetDefault("host", d.Host)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("min_delay", d.MinDelay)
	v.SetDefault("delay_jitter", d.DelayJitter)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("burst", d.Burst)
	v.SetDefault("max_challenge_attempts", d.MaxChallengeAttempts)
	v.SetDefault("image_host_url", d.ImageHostURL)
	v.SetDefault("log_level", "warn")
	v.SetDefault("db", "")
}

// scholarConfig decodes the session settings held by v.
func scholarConfig(v *viper.Viper) (types.ScholarConfig, error) {
	cfg := types.DefaultScholarConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns a stderr text logger at the configured level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// newClient builds a scholar client from the current configuration.
func newClient() (*scholar.Client, error) {
	cfg, err := scholarConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return scholar.NewClient(cfg, scholar.WithLogger(newLogger(viper.GetString("log_level"))))
}

// commandContext returns a context cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
