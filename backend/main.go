package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "applicants",
	Short: "Applicant document service",
	Long: `applicants generates, converts, stores and delivers the legal documents of
grant applicants: contracts, consulting contracts and authority documents.

Without a subcommand it serves the HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "config.yaml", "config file")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP port, overrides server.port")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
}

// initConfig lets GRANTDOCS_CONFIG and GRANTDOCS_PORT stand in for the flags
func initConfig() {
	viper.SetEnvPrefix("GRANTDOCS")
	viper.AutomaticEnv()
}

// loadConfig reads the YAML config and initializes logging
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if port := viper.GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.Info("configuration loaded", "path", path, "database", cfg.Database.Driver, "storage", cfg.Storage.Backend)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
