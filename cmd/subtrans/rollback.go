package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subtrans/internal/engine"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <folder>",
	Short: "Undo the changes of a crashed run from its journal",
	Long: "A run that is killed mid-commit leaves a journal behind in the folder's\n" +
		"temp area. rollback replays that journal in reverse, restoring every\n" +
		"file the crashed run had already replaced, then removes the journal.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, args []string) error {
		n, err := engine.ReplayJournal(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "rolled back %d journaled operation(s)\n", n)
		return nil
	},
}
