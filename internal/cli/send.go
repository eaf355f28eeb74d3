package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/session"
	"github.com/spf13/cobra"
)

var (
	sendThread string
	sendImage  string
)

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send a message and stream the reply",
	Long: `Send a message to a thread and print the reply as it arrives.

Without --thread a new thread is created and its id is printed first.

Examples:
  chatcli send "Hello"
  chatcli send --thread 1b4e28ba-2fa1-11d2-883f-0016d3cca427 "And then?"
  chatcli send --thread <id> --image diagram.png`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendThread, "thread", "t", "", "thread id")
	sendCmd.Flags().StringVarP(&sendImage, "image", "i", "", "image file to attach (jpeg, png, gif, webp)")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	text := strings.Join(args, " ")

	if strings.TrimSpace(text) == "" && sendImage == "" {
		return errors.New("nothing to send: give a message or --image")
	}

	threadID, err := resolveThread(cmd)
	if err != nil {
		return err
	}

	var att *session.Attachment
	if sendImage != "" {
		f, err := os.Open(sendImage)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		att = &session.Attachment{Filename: sendImage, Body: f}
	}

	ctrl := session.NewController(api, threadID, session.Options{})
	printed := 0
	ctrl.Subscribe(func(s session.State) {
		switch s.Phase {
		case session.PhaseStreaming:
			if len(s.Streaming) > printed {
				fmt.Fprint(out, s.Streaming[printed:])
				printed = len(s.Streaming)
			}
		case session.PhaseFinalized:
			last := s.Messages[len(s.Messages)-1].Content
			if len(last) > printed {
				fmt.Fprint(out, last[printed:])
			}
			fmt.Fprintln(out)
		case session.PhaseErrored:
			if printed > 0 {
				fmt.Fprintln(out)
			}
		}
	})

	return ctrl.Submit(ctx, text, att)
}

func resolveThread(cmd *cobra.Command) (uuid.UUID, error) {
	if sendThread != "" {
		id, err := uuid.Parse(sendThread)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid thread id %q", sendThread)
		}
		return id, nil
	}
	id, err := api.CreateThread(cmd.Context())
	if err != nil {
		return uuid.Nil, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "thread: %s\n", id)
	return id, nil
}
