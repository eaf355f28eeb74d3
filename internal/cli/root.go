// Package cli provides the command-line client for a mindchat server.
package cli

import (
	"net/http"
	"os"

	"github.com/set-night/mindchat/internal/client"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:3000"

var (
	// Global flags
	serverURL string
	plain     bool

	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Chat with a mindchat server from the terminal",
	Long: `chatcli talks to a running mindchat server.

The server address comes from --server, then MINDCHAT_URL, then
` + defaultServer + `.

Examples:
  chatcli new
  chatcli send --thread <id> "What is in this picture?" --image cat.png
  chatcli history --thread <id>`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			serverURL = os.Getenv("MINDCHAT_URL")
		}
		if serverURL == "" {
			serverURL = defaultServer
		}
		api = client.New(serverURL, &http.Client{})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (env MINDCHAT_URL)")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print markdown without styling")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
