package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amdify/internal/convert"
)

var (
	dryRun   bool
	showDiff bool
	noColor  bool
	jobs     int
	limit    int
	ignores  []string
)

// convertCmd rewrites steal headers in place
var convertCmd = &cobra.Command{
	Use:   "convert [path ...]",
	Short: "Rewrite steal() module headers to define()",
	Long: `Rewrites the first top-level steal(...) call of every JavaScript file
under the given paths (default: the current directory) into an AMD
define([...], ...) call, translating each dependency name through the
configured mapping. Only the header changes; the rest of the file is
preserved byte for byte.

A file whose header cannot be converted is left untouched and counted
as failed; the run continues with the remaining files.

Examples:
  amdify convert src/
  amdify convert --dry-run --diff src/ lib/app.js
  amdify convert --jobs 8 --ignore vendor/ .`,
	RunE: runConvert,
}

// runConvert executes one conversion run
func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if cmd.Flags().Changed("jobs") {
		cfg.Convert.Jobs = jobs
	}
	if cmd.Flags().Changed("limit") {
		cfg.Convert.Limit = limit
	}
	cfg.Convert.Ignores = append(cfg.Convert.Ignores, ignores...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := convert.Options{DryRun: dryRun, ShowDiff: showDiff, Color: !noColor}
	runner := convert.NewRunner(cfg, opts, logger, os.Stdout)
	stats, err := runner.Run(ctx, args)
	if err != nil {
		return err
	}

	verb := "Converted"
	if dryRun {
		verb = "Would convert"
	}
	fmt.Printf("%s %d of %d files (%d skipped, %d ignored, %d failed)\n",
		verb, stats.Converted, stats.Scanned, stats.Skipped, stats.Ignored, stats.Failed)

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to convert", stats.Failed, stats.Scanned)
	}
	return nil
}
