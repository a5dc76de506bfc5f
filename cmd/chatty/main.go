package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatty",
	Short: "Streaming chat over a single byte stream",
	Long: `chatty is a streaming conversation service and client.

The server relays completion tokens and control events to clients
over one byte stream per turn and records every conversation. The
client renders conversations in the terminal.

Examples:
  chatty serve --config chatty.yaml      Run the relay server
  chatty chat                            Start a new conversation
  chatty chat --chat-id <id>             Resume a conversation`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
