/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/metrics"
	"github.com/ssargent/fitfix/pkg/repair"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check PATH...",
	Short: "Sort captures into good and bad",
	Long: `Validate captures as they are, without repairing them, and print the
paths of either the good or the bad ones. Repair flags are rejected.

Examples:
  fitfix check --name-good *.fit
  fitfix check --name-bad --force *.fit | xargs -I{} mv {} broken/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addRepairFlags(checkCmd)
	checkCmd.Flags().Bool("name-good", false, "Print the paths of good captures")
	checkCmd.Flags().Bool("name-bad", false, "Print the paths of bad captures")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)

	good, _ := cmd.Flags().GetBool("name-good")
	bad, _ := cmd.Flags().GetBool("name-bad")
	if good == bad {
		return &repair.Error{Kind: repair.KindConfiguration, Err: errors.New("exactly one of --name-good and --name-bad is required")}
	}

	opts, err := repairOptions(cmd, a.cfg)
	if err != nil {
		return err
	}
	opts.Check = true
	if !cmd.Flags().Changed("validate") {
		opts.Validate = true
	}
	plan, err := repair.NewPlan(opts)
	if err != nil {
		return err
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	runID := ksuid.New().String()
	c, err := repair.ClassifyFiles(cmd.Context(), args, plan, repair.BatchOptions{
		Workers:  workers(cmd, a.cfg),
		Logger:   a.log,
		RunID:    runID,
		OnResult: a.recorder(j, runID, metrics.ModeCheck),
	})
	if err != nil {
		return err
	}

	names := c.Good
	if bad {
		names = c.Bad
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	a.log.WithField("good", len(c.Good)).WithField("bad", len(c.Bad)).Info("checked")
	return nil
}
