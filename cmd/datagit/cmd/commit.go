package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/datagit-project/datagit"
	"github.com/datagit-project/datagit/core"
	"github.com/spf13/cobra"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit uncommitted changes",
	Long:  "Write the uncommitted record store changes as a new commit on the current branch.",
	Args:  cobra.NoArgs,
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) (err error) {
	r, err := openRepo()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	id, err := datagit.Commit(cmd.Context(), datagit.CommitOptions{
		Repo:      r,
		Store:     store,
		Message:   commitMessage,
		Committer: committer(),
	})
	if errors.Is(err, core.ErrEmptyCommit) {
		fmt.Fprintln(os.Stderr, "Nothing to commit")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Committed %s\n", id)
	return nil
}
