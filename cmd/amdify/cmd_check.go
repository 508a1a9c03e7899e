package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amdify/internal/convert"
)

// checkCmd lists files that still carry a steal header
var checkCmd = &cobra.Command{
	Use:   "check [path ...]",
	Short: "List files still using steal()",
	Long: `Scans the given paths (default: the current directory) without
modifying anything and prints every JavaScript file whose module header
still calls steal. Exits non-zero when any remain, so check can gate CI
once a migration is supposed to be complete.

Files that cannot be read or parsed are logged and excluded from the
count.

Example:
  amdify check src/ && echo migration done`,
	RunE: runCheck,
}

// runCheck scans for remaining steal headers
func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	runner := convert.NewRunner(cfg, convert.Options{}, logger, os.Stdout)
	stale, total, err := runner.Check(ctx, args)
	if err != nil {
		return err
	}

	for _, path := range stale {
		fmt.Println(path)
	}
	if len(stale) > 0 {
		return fmt.Errorf("%d of %d files still use steal", len(stale), total)
	}
	fmt.Printf("All %d files are steal-free\n", total)
	return nil
}
