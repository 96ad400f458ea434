package cmd

import (
	"fmt"
	"os"

	"github.com/datagit-project/datagit/repo"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List uncommitted changes",
	Long:  "List the record store changes that are not committed yet.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	changes, err := repo.WorkspaceDiff(cmd.Context(), store)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to commit")
		return nil
	}
	for _, change := range changes {
		fmt.Printf("%-8s %s\n", change.Type, change.Ref.Path())
	}
	return nil
}
