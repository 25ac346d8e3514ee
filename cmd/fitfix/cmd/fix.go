/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/journal"
	"github.com/ssargent/fitfix/pkg/metrics"
	"github.com/ssargent/fitfix/pkg/repair"
)

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix PATH...",
	Short: "Repair one or more captures",
	Long: `Repair FIT captures. Steps run in a fixed order: skip --start bytes,
--add-header, then --slices or --drop, --fix-header, --fix-checksum and
finally --validate.

Examples:
  fitfix fix --drop --fix-checksum --validate -o fixed.fit ride.fit
  fitfix fix --slices ':14,28:' --fix-header --fix-checksum --raw ride.fit > fixed.fit
  fitfix fix --add-header --fix-header --fix-checksum --discard --validate *.fit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	addRepairFlags(fixCmd)
	addOutputFlags(fixCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Write the result to this file (a directory for several inputs)")
	cmd.Flags().Bool("raw", false, "Write the raw result to stdout")
	cmd.Flags().Bool("discard", false, "Do not write the result anywhere")
}

func runFix(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)

	opts, err := repairOptions(cmd, a.cfg)
	if err != nil {
		return err
	}
	plan, err := repair.NewPlan(opts)
	if err != nil {
		return err
	}

	dest, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")
	discard, _ := cmd.Flags().GetBool("discard")
	out, err := newOutput(dest, raw, discard, len(args))
	if err != nil {
		return err
	}

	if !plan.Force() {
		a.log.Warn("running without --force: header, checksum and trailing byte problems are only warnings")
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	runID := ksuid.New().String()
	results, err := repair.Batch(cmd.Context(), args, plan, repair.BatchOptions{
		Workers:  workers(cmd, a.cfg),
		Logger:   a.log,
		RunID:    runID,
		OnResult: a.recorder(j, runID, metrics.ModeFix),
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			continue
		}
		if err := out.write(cmd.OutOrStdout(), r.Path, r.Result.Data); err != nil {
			return err
		}
		a.log.WithField("path", r.Path).
			WithField("drops", len(r.Result.Report.Drops)).
			WithField("size", len(r.Result.Data)).
			Info("repaired")
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailures, failed, len(results))
	}
	return nil
}

// recorder returns a batch callback that feeds metrics and the journal
func (a *app) recorder(j *journal.Journal, runID, mode string) func(repair.FileResult) {
	return func(r repair.FileResult) {
		a.metrics.RecordFileResult(mode, r)
		if j == nil {
			return
		}
		if _, err := j.Append(journal.FromFileResult(runID, mode, r)); err != nil {
			a.log.WithError(err).Warn("failed to write journal entry")
		}
	}
}
