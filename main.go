package main

import "github.com/mopasmoi-ai/discord-bot-audrey/cmd"

func main() {
	cmd.Execute()
}
