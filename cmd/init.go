package cmd

import (
	"fmt"
	"log"

	"github.com/mopasmoi-ai/discord-bot-audrey/audrey"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the sqlite database and run migrations",
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Database == "" {
			log.Fatal(
				"Environment variable AUDREY_DATABASE not set " +
					"(must be a sqlite file path)",
			)
		}
		_, err := audrey.CreateDB(
			cfg.Database,
			nil,
			cfg.DatabaseSlowThreshold,
		)
		if err != nil {
			log.Fatalf("Error creating database: %v", err)
		}

		fmt.Fprintln(
			cmd.OutOrStdout(),
			"Initialization complete. You can now start the bot with the 'run' subcommand.",
		)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
