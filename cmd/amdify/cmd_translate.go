package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// translateCmd shows mapping results without touching any file
var translateCmd = &cobra.Command{
	Use:   "translate [name ...]",
	Short: "Print the module ID a dependency name maps to",
	Long: `Runs each name through the configured mapping and prints the module ID
convert would emit for it. Useful for checking a mapping before a run.

Examples:
  amdify translate jquery can/util
  amdify translate 'views/list.mustache!'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

// runTranslate prints mapping results
func runTranslate(cmd *cobra.Command, args []string) error {
	for _, name := range args {
		fmt.Printf("%s -> %s\n", name, cfg.Mapping.Translate(name))
	}
	return nil
}
