package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/storypack/go/storypack/pkg/logging"
	"github.com/provide-io/storypack/go/storypack/pkg/pack/format_raw"
	"github.com/provide-io/storypack/go/storypack/pkg/pack/manifest"
)

// BuildOptions controls BuildPackage
type BuildOptions struct {
	Enriched    bool
	LockTimeout time.Duration
	// Verify reads the written pack back and checks it
	Verify bool
}

// BuildPackage assembles the manifest at manifestPath into a raw story pack at outputPath
func BuildPackage(ctx context.Context, manifestPath, outputPath string, opts BuildOptions) (*format_raw.Allocation, error) {
	logger := logging.NewLogger("storypack-build", logging.GetLogLevel(), nil)
	return BuildPackageWithLogger(ctx, manifestPath, outputPath, opts, logger)
}

// BuildPackageWithLogger is BuildPackage with a caller supplied logger
func BuildPackageWithLogger(ctx context.Context, manifestPath, outputPath string, opts BuildOptions, logger hclog.Logger) (*format_raw.Allocation, error) {
	logger.Info("🚀 Building story pack", "manifest", manifestPath, "output", outputPath, "enriched", opts.Enriched)

	pack, err := manifest.Load(manifestPath, logger)
	if err != nil {
		return nil, err
	}

	alloc, err := format_raw.NewWriterWithLogger(logger).WriteFile(ctx, pack, outputPath, format_raw.FileOptions{
		Enriched:    opts.Enriched,
		LockTimeout: opts.LockTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	if opts.Verify {
		if _, err := VerifyPackageWithLogger(outputPath, logger); err != nil {
			return alloc, err
		}
	}
	return alloc, nil
}

// VerifyPackage checks the pack at packPath
func VerifyPackage(packPath string) (*VerifyReport, error) {
	logger := logging.NewLogger("storypack-verify", logging.GetLogLevel(), nil)
	return VerifyPackageWithLogger(packPath, logger)
}
