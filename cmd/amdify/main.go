package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"amdify/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger and configuration, built once in PersistentPreRunE and
	// shared by every subcommand
	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "amdify",
	Short: "amdify - migrate steal() module headers to AMD define()",
	Long: `amdify rewrites the module headers of a steal-based JavaScript
codebase to AMD. The first top-level steal(...) call of each file
becomes define([...], ...), dependency names are translated to module
IDs through a configurable mapping, and every byte outside the header
is preserved exactly as it was.

Files without a steal header are left untouched, so running amdify
over the same tree twice is safe.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigFile
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		zapConfig := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// initCmd writes a starter configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter " + config.DefaultConfigFile,
	Long: `Writes a configuration file seeded with the default mapping, ready
for hand-editing. Refuses to overwrite an existing file.

The file location follows --config when given, otherwise ` + config.DefaultConfigFile + `
in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

// runInit seeds the configuration file
func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so an
// interrupted run stops between files rather than mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default "+config.DefaultConfigFile+")")

	// Convert flags
	convertCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Compute rewrites without writing any file")
	convertCmd.Flags().BoolVar(&showDiff, "diff", false, "Print a diff for each converted file")
	convertCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable diff colors")
	convertCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files to rewrite concurrently (default from config)")
	convertCmd.Flags().IntVar(&limit, "limit", 0, "Convert at most N files")
	convertCmd.Flags().StringSliceVar(&ignores, "ignore", nil, "Skip files under a path prefix (repeatable)")

	// Register commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
