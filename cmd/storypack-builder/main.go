package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/provide-io/storypack/go/storypack/internal/config"
	"github.com/provide-io/storypack/go/storypack/pkg"
	"github.com/provide-io/storypack/go/storypack/pkg/logging"
)

const version = "0.1.0"

var (
	manifestPath     string
	outputPath       string
	configPath       string
	logLevel         string
	enriched         bool
	verify           bool
	lockTimeout      time.Duration
	sampleConfigPath string
	rootCmd          *cobra.Command
	versionFlag      bool
)

func getBuilderTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = &cobra.Command{
		Use:           "storypack-builder",
		Short:         "Build raw story packs",
		Long:          `Build a raw story pack from a YAML or JSON project manifest`,
		RunE:          buildStoryPack,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the project manifest (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the story pack (required)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config.toml (defaults to ./storypack.toml, then the user config directory)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&enriched, "enriched", false, "Write authoring metadata blocks")
	rootCmd.Flags().BoolVar(&verify, "verify", true, "Read the pack back and verify it after writing")
	rootCmd.Flags().DurationVar(&lockTimeout, "lock-timeout", 0, "How long to wait for another writer of the same output")
	rootCmd.Flags().StringVar(&sampleConfigPath, "sample-config", "", "Write a sample config.toml to this path and exit")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")
}

func main() {
	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		printVersion()
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("storypack-builder %s\n", version)
	fmt.Printf("Built: %s\n", getBuilderTimestamp())
}

func buildStoryPack(cmd *cobra.Command, args []string) error {
	if versionFlag {
		printVersion()
		return nil
	}
	if sampleConfigPath != "" {
		if err := config.CreateSample(sampleConfigPath); err != nil {
			return err
		}
		fmt.Printf("📝 Sample config written to %s\n", sampleConfigPath)
		return nil
	}
	if manifestPath == "" || outputPath == "" {
		return errors.New("both --manifest and --output are required")
	}

	cfg, resolved, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags win over config, config already carries the environment overrides
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.NewLogger("storypack-builder", level, nil)
	logger.Debug("⚙️ Configuration loaded", "path", resolved)

	opts := pkg.BuildOptions{
		Enriched:    cfg.Build.Enriched,
		LockTimeout: cfg.LockTimeout(),
		Verify:      cfg.Build.VerifyAfterBuild,
	}
	if cmd.Flags().Changed("enriched") {
		opts.Enriched = enriched
	}
	if cmd.Flags().Changed("verify") {
		opts.Verify = verify
	}
	if cmd.Flags().Changed("lock-timeout") {
		opts.LockTimeout = lockTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	alloc, err := pkg.BuildPackageWithLogger(ctx, manifestPath, outputPath, opts, logger)
	if err != nil {
		return err
	}

	fmt.Printf("✅ %s: %d sectors, %s\n", outputPath, alloc.EndOffset()+1, humanize.Bytes(uint64(alloc.FileSize())))
	return nil
}
