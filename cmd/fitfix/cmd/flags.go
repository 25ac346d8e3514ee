/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ssargent/fitfix/pkg/config"
	"github.com/ssargent/fitfix/pkg/repair"
)

// addRepairFlags registers the repair plan flags shared by fix and check
func addRepairFlags(cmd *cobra.Command) {
	b := repair.DefaultBounds()
	f := cmd.Flags()

	f.Bool("drop", false, "Search for corrupt spans and drop them")
	f.String("slices", "", "Byte ranges to keep, e.g. ':14,28:' (excludes --drop)")
	f.Int("start", 0, "Skip this many leading bytes before anything else")
	f.Bool("add-header", false, "Prepend a synthetic header")
	f.Bool("fix-header", false, "Rewrite the header to match the payload")
	f.Bool("fix-checksum", false, "Recompute the trailing checksum")
	f.Bool("force", false, "Strict validation: header, checksum and trailing bytes must be exact")
	f.Bool("validate", false, "Parse the result and fail unless it is a complete capture")

	f.Uint8("header-size", 14, "Header size for --add-header (12 or 14)")
	f.Uint8("protocol-version", 0, "Protocol version written by --add-header/--fix-header (0 keeps it)")
	f.Uint16("profile-version", 0, "Profile version written by --add-header/--fix-header (0 keeps it)")

	f.Int("min-sync-cnt", b.MinSyncCnt, "Records that must parse after a drop")
	f.Int("max-record-len", b.MaxRecordLen, "Longest plausible record in bytes")
	f.Int("max-drop-cnt", b.MaxDropCnt, "Most spans dropped per capture")
	f.Int("max-back-cnt", b.MaxBackCnt, "Records a drop may reach back before the failure")
	f.Int("max-fwd-len", b.MaxFwdLen, "Bytes a drop may reach forward past the failure")
	f.Float64("max-delta-t", b.MaxDeltaT, "Largest timestamp jump in seconds across a drop")

	f.IntP("workers", "j", 0, "Captures processed concurrently (0 = number of CPUs)")
}

// repairOptions builds plan options from the config, overridden by any flag
// the user set
func repairOptions(cmd *cobra.Command, cfg *config.Config) (repair.Options, error) {
	f := cmd.Flags()
	opts := repair.Options{
		Bounds: cfg.Bounds(),
		Header: cfg.HeaderSpec(),
	}

	opts.Drop, _ = f.GetBool("drop")
	opts.Start, _ = f.GetInt("start")
	opts.AddHeader, _ = f.GetBool("add-header")
	opts.FixHeader, _ = f.GetBool("fix-header")
	opts.FixChecksum, _ = f.GetBool("fix-checksum")
	opts.Force, _ = f.GetBool("force")
	opts.Validate, _ = f.GetBool("validate")

	s, _ := f.GetString("slices")
	spans, err := repair.ParseSlices(s)
	if err != nil {
		return repair.Options{}, err
	}
	opts.Slices = spans

	ifChanged(f, "header-size", func() { opts.Header.Size, _ = f.GetUint8("header-size") })
	ifChanged(f, "protocol-version", func() { opts.Header.ProtocolVersion, _ = f.GetUint8("protocol-version") })
	ifChanged(f, "profile-version", func() { opts.Header.ProfileVersion, _ = f.GetUint16("profile-version") })

	b := &opts.Bounds
	ifChanged(f, "min-sync-cnt", func() { b.MinSyncCnt, _ = f.GetInt("min-sync-cnt") })
	ifChanged(f, "max-record-len", func() { b.MaxRecordLen, _ = f.GetInt("max-record-len") })
	ifChanged(f, "max-drop-cnt", func() { b.MaxDropCnt, _ = f.GetInt("max-drop-cnt") })
	ifChanged(f, "max-back-cnt", func() { b.MaxBackCnt, _ = f.GetInt("max-back-cnt") })
	ifChanged(f, "max-fwd-len", func() { b.MaxFwdLen, _ = f.GetInt("max-fwd-len") })
	ifChanged(f, "max-delta-t", func() { b.MaxDeltaT, _ = f.GetFloat64("max-delta-t") })

	return opts, nil
}

// workers returns --workers if set, else the configured count
func workers(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("workers") {
		n, _ := cmd.Flags().GetInt("workers")
		return n
	}
	return cfg.Workers
}

func ifChanged(f *pflag.FlagSet, name string, apply func()) {
	if f.Changed(name) {
		apply()
	}
}
