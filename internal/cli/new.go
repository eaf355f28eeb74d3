package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a thread and print its id",
	Args:  cobra.NoArgs,
	RunE:  runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	id, err := api.CreateThread(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
