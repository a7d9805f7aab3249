//go:build !windows

package format_raw

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// atomicReplace moves the finished temporary pack over destPath.
// Both live in the same directory, so rename(2) is atomic.
func atomicReplace(tmpPath, destPath string, logger hclog.Logger) error {
	logger.Debug("🔁 Replacing destination", "tmp", tmpPath, "dest", destPath)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move pack into place: %w", err)
	}
	return nil
}
