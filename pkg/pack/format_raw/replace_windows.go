//go:build windows

package format_raw

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// atomicReplace moves the finished temporary pack over destPath with
// MoveFileEx, retrying while another process (a scanner, a sync client)
// still holds the previous pack open.
func atomicReplace(tmpPath, destPath string, logger hclog.Logger) error {
	logger.Debug("🔁 Replacing destination", "tmp", tmpPath, "dest", destPath)

	fromPtr, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to convert source path to UTF-16: %w", err)
	}

	toPtr, err := windows.UTF16PtrFromString(destPath)
	if err != nil {
		return fmt.Errorf("failed to convert dest path to UTF-16: %w", err)
	}

	var flags uint32 = windows.MOVEFILE_REPLACE_EXISTING | windows.MOVEFILE_WRITE_THROUGH

	maxAttempts := 3
	delay := 50 * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = windows.MoveFileEx(fromPtr, toPtr, flags)
		if err == nil {
			if attempt > 1 {
				logger.Debug("🔁 Destination replaced after retry", "attempt", attempt)
			}
			return nil
		}

		if attempt == maxAttempts {
			return fmt.Errorf("failed to move pack into place after %d attempts: %w", maxAttempts, err)
		}

		logger.Debug("⏳ Destination busy, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		time.Sleep(delay)
		delay *= 2
	}

	return nil
}
