package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/rdb"
	"github.com/datagit-project/datagit/repo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "datagit",
	Short: "Versioned record store CLI",
	Long:  "CLI for committing, merging and inspecting a versioned record store.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/datagit/config.yaml)")
	rootCmd.PersistentFlags().String("dir", ".", "repository directory")
	rootCmd.PersistentFlags().String("db", "", "record store file (default: <dir>/records.duckdb)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DATAGIT")
	viper.AutomaticEnv()

	viper.ReadInConfig()

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "datagit")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "datagit")
	}
	return ".datagit"
}

func repoDir() string {
	return viper.GetString("dir")
}

func storePath() string {
	if db := viper.GetString("db"); db != "" {
		return db
	}
	return filepath.Join(repoDir(), "records.duckdb")
}

func openRepo() (*repo.Repository, error) {
	return repo.Open(repoDir())
}

func openStore() (*rdb.Store, error) {
	return rdb.Open(storePath())
}

func committer() core.Identity {
	return core.Identity{
		Name:  viper.GetString("user.name"),
		Email: viper.GetString("user.email"),
	}
}
