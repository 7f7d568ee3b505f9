package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/harvester/internal/infra/storage"
)

var lastTokenCmd = &cobra.Command{
	Use:   "last-token [directory]",
	Short: "Print the resumption token to restart a halted or interrupted harvest",
	Args:  cobra.ExactArgs(1),
	RunE:  runLastToken,
}

func init() {
	rootCmd.AddCommand(lastTokenCmd)
}

func runLastToken(cmd *cobra.Command, args []string) error {
	token, ok, err := storage.LastResumption(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no resumption token: the list is complete or nothing was harvested")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
