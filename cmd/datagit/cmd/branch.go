package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "List or create branches",
	Long:  "Without arguments, list all branches. With a name, create a branch at the current head.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBranch,
}

func init() {
	rootCmd.AddCommand(branchCmd)
}

func runBranch(cmd *cobra.Command, args []string) error {
	r, err := openRepo()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		branches, err := r.Branches()
		if err != nil {
			return err
		}
		for _, name := range branches {
			fmt.Println(name)
		}
		return nil
	}

	head, err := r.Head()
	if err != nil {
		return err
	}
	if head == nil {
		return fmt.Errorf("cannot branch: no commits yet")
	}
	return r.Branch(args[0], head.ID)
}
