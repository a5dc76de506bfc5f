package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cagkan/chatty/client"
	"github.com/cagkan/chatty/tui"
)

var (
	chatServerFlag string
	chatTokenFlag  string
	chatIDFlag     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServerFlag, "server", "http://localhost:8080", "Relay server URL")
	chatCmd.Flags().StringVar(&chatTokenFlag, "token", "", "Bearer token (defaults to CHATTY_TOKEN)")
	chatCmd.Flags().StringVar(&chatIDFlag, "chat-id", "", "Resume an existing conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	token := chatTokenFlag
	if token == "" {
		token = os.Getenv("CHATTY_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("no token provided: use --token or set CHATTY_TOKEN")
	}

	c := client.New(chatServerFlag, token)
	program := tea.NewProgram(
		tui.New(c, chatIDFlag),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}
