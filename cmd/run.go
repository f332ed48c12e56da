package cmd

import (
	"github.com/mopasmoi-ai/discord-bot-audrey/audrey"
	"github.com/spf13/cobra"
	"log"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Audrey bot and keep-alive server",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := audrey.New(cfg)
		if err != nil {
			log.Fatalf("error creating audrey: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running audrey: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
