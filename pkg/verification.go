package pkg

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/storypack/go/storypack/pkg/pack/format_raw"
)

// VerifyReport summarizes a pack verification
type VerifyReport struct {
	Path           string
	Size           int64
	Version        int
	StageNodes     int
	ActionNodes    int
	Assets         int
	SignatureValid bool
	LayoutValid    bool
	Problems       []string
}

// OK reports whether every check passed
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

// VerifyPackageWithLogger checks the trailing signature, then decodes the
// pack and checks that its layout is what the encoder produces for it.
// Every failed check is listed in the report; the error wraps
// ErrVerificationFailed when there is at least one.
func VerifyPackageWithLogger(packPath string, logger hclog.Logger) (*VerifyReport, error) {
	reader, err := format_raw.NewReaderWithLogger(packPath, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Debug("Failed to close reader", "error", err)
		}
	}()

	report := &VerifyReport{Path: packPath}
	if report.Size, err = reader.Size(); err != nil {
		return nil, err
	}

	logger.Info("🔍 Verifying story pack", "path", packPath, "size", report.Size)

	if _, err := reader.VerifySignature(); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("signature: %v", err))
		logger.Error("Signature verification failed", "error", err)
	} else {
		report.SignatureValid = true
		logger.Info("✓ Signature valid")
	}

	if header, err := reader.ReadHeader(false); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("header: %v", err))
		logger.Error("Header read failed", "error", err)
	} else {
		report.Version = int(header.Version)
		report.StageNodes = int(header.StageNodeCount)
	}

	if alloc, err := reader.VerifyLayout(format_raw.ReadOptions{}); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("layout: %v", err))
		logger.Error("Layout verification failed", "error", err)
	} else {
		report.LayoutValid = true
		report.ActionNodes = len(alloc.ActionNodes())
		report.Assets = len(alloc.Assets())
		logger.Info("✓ Layout valid", "action_nodes", report.ActionNodes, "assets", report.Assets)
	}

	if !report.OK() {
		logger.Error("✗ Story pack verification failed", "error_count", len(report.Problems))
		for _, p := range report.Problems {
			logger.Error("  Verification error", "details", p)
		}
		return report, fmt.Errorf("%s: %d problems: %w", packPath, len(report.Problems), ErrVerificationFailed)
	}

	logger.Info("✓ Story pack verification passed")
	return report, nil
}
