package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var logMax int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List commits",
	Long:  "List the commits reachable from the current branch, newest first.",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logMax, "max-count", "n", 0, "limit the number of commits (0 = all)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	r, err := openRepo()
	if err != nil {
		return err
	}
	head, err := r.Head()
	if err != nil {
		return err
	}
	if head == nil {
		return nil
	}

	commits, err := r.Log(head.ID, logMax)
	if err != nil {
		return err
	}
	for _, c := range commits {
		subject, _, _ := strings.Cut(c.Message, "\n")
		fmt.Printf("%s %s <%s> %s %s\n",
			c.ID, c.Author.Name, c.Author.Email,
			c.When.Format("2006-01-02 15:04:05"), subject)
	}
	return nil
}
