// Package cli is the lifetrack command line: the API server and the
// database maintenance commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cppla/lifetrack/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lifetrack",
	Short: "Life tracker gamification service",
	Long: `lifetrack awards points for check-ins and completed habits, routines,
workouts and exercises, and serves levels, streaks, achievements and rankings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the JSON config file")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config and installs the result for the packages
// that read config.Get().
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return config.AppConfig{}, err
	}
	config.Set(cfg)
	return cfg, nil
}
