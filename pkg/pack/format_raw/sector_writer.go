package format_raw

import (
	"fmt"
	"io"

	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
)

var zeroSector [SectorSize]byte

// SectorWriter is an append-only sink that tracks how many bytes went through
// it, so records can be placed at sector addresses without seeking.
//
// The first sector of the stream is the header; Sector reports addresses
// relative to the sector that follows it.
type SectorWriter struct {
	w       io.Writer
	written int64
}

// NewSectorWriter wraps w
func NewSectorWriter(w io.Writer) *SectorWriter {
	return &SectorWriter{w: w}
}

// Write appends p, wrapping sink failures in ErrIOFailure
func (sw *SectorWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	sw.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("%w: %w", packerrors.ErrIOFailure, err)
	}
	if n != len(p) {
		return n, fmt.Errorf("%w: %w", packerrors.ErrIOFailure, io.ErrShortWrite)
	}
	return n, nil
}

// Written returns the number of bytes appended so far
func (sw *SectorWriter) Written() int64 {
	return sw.written
}

// Sector returns the address of the sector the cursor is in
func (sw *SectorWriter) Sector() int {
	return int(sw.written/SectorSize) - 1
}

// WritePadding appends n zero bytes
func (sw *SectorWriter) WritePadding(n int) error {
	for n > 0 {
		chunk := n
		if chunk > SectorSize {
			chunk = SectorSize
		}
		if _, err := sw.Write(zeroSector[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// PadToSector appends zero bytes up to the next sector boundary
func (sw *SectorWriter) PadToSector() error {
	if overflow := int(sw.written % SectorSize); overflow > 0 {
		return sw.WritePadding(SectorSize - overflow)
	}
	return nil
}

// SkipToSector appends whole zero sectors until the cursor reaches addr.
// The cursor must be on a sector boundary.
func (sw *SectorWriter) SkipToSector(addr int) (int, error) {
	if sw.written%SectorSize != 0 {
		return 0, fmt.Errorf("cursor at %d is not sector aligned", sw.written)
	}
	skipped := 0
	for sw.Sector() < addr {
		if _, err := sw.Write(zeroSector[:]); err != nil {
			return skipped, err
		}
		skipped++
	}
	return skipped, nil
}
