package format_raw

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// FileOptions controls WriteFile
type FileOptions struct {
	Enriched bool

	// LockTimeout is how long to wait for another writer to release the
	// destination. Zero fails immediately when the destination is locked.
	LockTimeout time.Duration
}

// WriteFile encodes pack to path. The pack is written to a temporary file
// next to path and renamed over it only once complete, so a failed encode
// never leaves a partial pack at path. Concurrent writers to the same path
// are excluded with an advisory lock on path+".lock".
func (w *Writer) WriteFile(ctx context.Context, pack *story.Pack, path string, opts FileOptions) (*Allocation, error) {
	alloc, err := Allocate(pack, w.logger)
	if err != nil {
		return nil, err
	}
	if err := alloc.CheckRecords(opts.Enriched); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	w.logger.Debug("📁 Ensuring output directory exists", "dir", dir)
	if err := os.MkdirAll(dir, os.FileMode(DirPerms)); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	unlock, err := w.lockDestination(ctx, path, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	size := alloc.FileSize()
	if available, err := getAvailableDiskSpace(dir); err != nil {
		w.logger.Warn("⚠️ Could not check available disk space", "dir", dir, "error", err)
	} else if available < size+DiskSpaceHeadroom {
		return nil, fmt.Errorf("need %s, %s available in %s: %w",
			humanize.Bytes(uint64(size+DiskSpaceHeadroom)), humanize.Bytes(uint64(available)), dir, packerrors.ErrInsufficientSpace)
	}

	tmp, err := os.CreateTemp(dir, TmpPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	w.logger.Debug("💾 Writing to temporary file", "path", tmpPath, "size", size)

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
				w.logger.Warn("⚠️ Failed to remove temporary file", "path", tmpPath, "error", err)
			}
		}
	}()

	if err := w.EncodeAllocated(pack, alloc, tmp, opts.Enriched); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("%w: %w", packerrors.ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", packerrors.ErrIOFailure, err)
	}
	if err := os.Chmod(tmpPath, os.FileMode(FilePerms)); err != nil {
		return nil, fmt.Errorf("failed to set pack permissions: %w", err)
	}
	if err := atomicReplace(tmpPath, path, w.logger); err != nil {
		return nil, err
	}
	committed = true

	w.logger.Info("✅ Story pack written", "output", path, "size", humanize.Bytes(uint64(size)))
	return alloc, nil
}

func (w *Writer) lockDestination(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	lockPath := path + LockSuffix
	lock := flock.New(lockPath)

	var locked bool
	var err error
	if timeout > 0 {
		lockCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		locked, err = lock.TryLockContext(lockCtx, 50*time.Millisecond)
		if err != nil && lockCtx.Err() != nil && ctx.Err() == nil {
			// Timed out waiting, report it as a held lock
			err = nil
		}
	} else {
		locked, err = lock.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, packerrors.ErrDestinationLocked)
	}

	w.logger.Debug("🔒 Destination locked", "lock", lockPath)
	return func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("⚠️ Failed to release destination lock", "lock", lockPath, "error", err)
		}
	}, nil
}
