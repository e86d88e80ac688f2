package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/blogd"
)

var (
	configPath   string
	globalConfig blogd.Config
)

var rootCmd = &cobra.Command{
	Use:   "blogd",
	Short: "Blog API server with posts, comments, likes and saves",
	Long: `blogd serves a JSON blogging API backed by SQLite.

Configuration comes from an optional YAML file (--config) and
BLOGD_* environment variables, which take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		cfg, err := blogd.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the blogd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blogd %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", blogd.EnvOr("BLOGD_CONFIG", ""), "path to YAML config file")
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, userCmd, categoryCmd, postCmd)
}
