/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/journal"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the repair journal",
	Long: `List journal entries, newest first.

Examples:
  fitfix history --journal=./journal
  fitfix history --run=2mX0cZ1Q3kQyJ8nT1b7yq4Wn3Jd --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		j, err := a.openJournal()
		if err != nil {
			return err
		}
		if j == nil {
			return errors.New("no journal configured (use --journal or journal.dir in the config)")
		}
		defer j.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		run, _ := cmd.Flags().GetString("run")
		asJSON, _ := cmd.Flags().GetBool("json")

		var entries []journal.Entry
		if run != "" {
			entries, err = j.ListRun(run)
		} else {
			entries, err = j.List(limit)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		return printEntries(cmd.OutOrStdout(), entries)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().String("run", "", "Show only the entries of this run, oldest first")
	historyCmd.Flags().Bool("json", false, "Print entries as JSON")
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tMODE\tPATH\tRESULT\tDROPS\tSIZE")
	for _, e := range entries {
		result := "ok"
		if !e.OK {
			result = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			e.Time().Format(time.RFC3339), e.RunID, e.Mode, e.Path, result, len(e.Drops), e.OutputSize)
	}
	return tw.Flush()
}
