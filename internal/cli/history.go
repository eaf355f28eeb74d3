package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/spf13/cobra"
)

var historyThread string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a thread's messages",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyThread, "thread", "t", "", "thread id")
	_ = historyCmd.MarkFlagRequired("thread")
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(historyThread)
	if err != nil {
		return fmt.Errorf("invalid thread id %q", historyThread)
	}

	h, err := api.History(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(h.Messages) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return nil
	}

	var md strings.Builder
	for _, m := range h.Messages {
		writeMessage(&md, m)
	}

	if plain {
		fmt.Fprint(out, md.String())
		return nil
	}
	styled, err := glamour.Render(md.String(), "dark")
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Fprint(out, styled)
	return nil
}

func writeMessage(b *strings.Builder, m domain.Message) {
	who := "You"
	if m.Role == domain.RoleAssistant {
		who = "Assistant"
	}
	fmt.Fprintf(b, "### %s · %s\n\n", who, m.CreatedAt.Local().Format("2006-01-02 15:04"))
	if m.HasImage() {
		fmt.Fprintf(b, "![image](%s)\n\n", *m.ImageURL)
	}
	if m.Content != "" {
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
}
