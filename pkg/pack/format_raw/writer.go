package format_raw

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// Writer encodes story packs into the raw sector container
type Writer struct {
	logger hclog.Logger
}

// NewWriter creates a writer that does not log
func NewWriter() *Writer {
	return NewWriterWithLogger(hclog.NewNullLogger())
}

// NewWriterWithLogger creates a writer with a custom logger
func NewWriterWithLogger(logger hclog.Logger) *Writer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Writer{logger: logger}
}

// Encode writes pack to dst using a writer that does not log
func Encode(pack *story.Pack, dst io.Writer, enriched bool) error {
	return NewWriter().Encode(pack, dst, enriched)
}

// Encode writes the complete container for pack to dst in a single
// append-only pass. On error the bytes already written to dst are not a
// valid pack and must be discarded.
func (w *Writer) Encode(pack *story.Pack, dst io.Writer, enriched bool) error {
	alloc, err := Allocate(pack, w.logger)
	if err != nil {
		return err
	}
	return w.EncodeAllocated(pack, alloc, dst, enriched)
}

// EncodeAllocated writes pack to dst with addresses from a previous Allocate call.
//
// Every check that does not depend on the sink runs before the first byte.
func (w *Writer) EncodeAllocated(pack *story.Pack, alloc *Allocation, dst io.Writer, enriched bool) error {
	if pack.Version < 0 || pack.Version > 0xFFFF {
		return fmt.Errorf("version %d: %w", pack.Version, packerrors.ErrAddressOverflow)
	}
	if err := alloc.CheckRecords(enriched); err != nil {
		return err
	}

	bw := bufio.NewWriterSize(dst, 64*SectorSize)
	sw := NewSectorWriter(bw)

	w.logger.Debug("📼 Encoding story pack",
		"stage_nodes", len(pack.StageNodes),
		"action_nodes", len(alloc.ActionNodes()),
		"assets", len(alloc.Assets()),
		"enriched", enriched)

	// 📄 Sector 0
	if err := w.writeHeader(sw, pack, enriched); err != nil {
		return err
	}

	// 🎬 Stage nodes, pack order is address order
	for i, node := range pack.StageNodes {
		record, err := newStageNodeRecord(node, alloc, enriched)
		if err != nil {
			return fmt.Errorf("stage node %d: %w", i, err)
		}
		if _, err := sw.Write(record.Pack()); err != nil {
			return fmt.Errorf("stage node %d: %w", i, err)
		}
	}
	w.logger.Trace("✍️ Stage nodes written", "count", len(pack.StageNodes), "cursor", sw.Written())

	// 🔀 Action nodes
	currentOffset, err := w.writeActionNodes(sw, alloc, enriched)
	if err != nil {
		return err
	}

	// 🖼️ Assets
	if err := w.writeAssets(sw, alloc, currentOffset); err != nil {
		return err
	}

	// 🔏 Trailing signature
	if _, err := sw.Write(signatureBytes); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", packerrors.ErrIOFailure, err)
	}

	w.logger.Info("✅ Story pack encoded",
		"size", humanize.Bytes(uint64(sw.Written())),
		"bytes", sw.Written(),
		"sectors", alloc.EndOffset()+1)

	return nil
}

func (w *Writer) writeHeader(sw *SectorWriter, pack *story.Pack, enriched bool) error {
	header := &HeaderRecord{
		StageNodeCount:  uint16(len(pack.StageNodes)),
		FactoryDisabled: pack.FactoryDisabled,
		Version:         uint16(pack.Version),
	}
	if enriched {
		header.Enriched = pack.Enriched
	}
	if _, err := sw.Write(header.Pack()); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	w.logger.Trace("✍️ Header written", "version", pack.Version, "enriched", header.Enriched != nil)
	return nil
}

// writeActionNodes writes every action node at its address and returns the
// address the cursor reached.
func (w *Writer) writeActionNodes(sw *SectorWriter, alloc *Allocation, enriched bool) (int, error) {
	for _, slot := range alloc.ActionNodes() {
		skipped, err := sw.SkipToSector(slot.Addr)
		if err != nil {
			return 0, fmt.Errorf("action node %d: %w", slot.Addr, err)
		}
		if skipped > 0 {
			w.logger.Debug("⏭️ Padding before action node", "addr", slot.Addr, "sectors", skipped)
		}

		record, err := newActionNodeRecord(slot.Node, alloc, enriched)
		if err != nil {
			return 0, fmt.Errorf("action node %d: %w", slot.Addr, err)
		}
		data, err := record.Pack()
		if err != nil {
			return 0, fmt.Errorf("action node %d: %w", slot.Addr, err)
		}
		if _, err := sw.Write(data); err != nil {
			return 0, fmt.Errorf("action node %d: %w", slot.Addr, err)
		}
	}
	w.logger.Trace("✍️ Action nodes written", "count", len(alloc.ActionNodes()), "cursor", sw.Written())
	return sw.Sector(), nil
}

func (w *Writer) writeAssets(sw *SectorWriter, alloc *Allocation, currentOffset int) error {
	for _, slot := range alloc.Assets() {
		if slot.Addr.Offset > currentOffset {
			skipped, err := sw.SkipToSector(slot.Addr.Offset)
			if err != nil {
				return fmt.Errorf("%s asset %d: %w", slot.Addr.Category, slot.Addr.Offset, err)
			}
			w.logger.Debug("⏭️ Padding before asset", "addr", slot.Addr.Offset, "sectors", skipped)
		}
		if _, err := sw.Write(slot.Data); err != nil {
			return fmt.Errorf("%s asset %d: %w", slot.Addr.Category, slot.Addr.Offset, err)
		}
		if err := sw.PadToSector(); err != nil {
			return fmt.Errorf("%s asset %d: %w", slot.Addr.Category, slot.Addr.Offset, err)
		}
		currentOffset = slot.Addr.Offset + slot.Addr.Sectors
	}
	w.logger.Trace("✍️ Assets written", "count", len(alloc.Assets()), "cursor", sw.Written())
	return nil
}

func newStageNodeRecord(node *story.StageNode, alloc *Allocation, enriched bool) (*StageNodeRecord, error) {
	record := &StageNodeRecord{
		UUID:     node.UUID,
		Controls: node.ControlSettings,
	}

	var err error
	if record.Image, err = newAssetField(node.Image, alloc); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if record.Audio, err = newAssetField(node.Audio, alloc); err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	if record.Ok, err = newTransitionField(node.OkTransition, alloc); err != nil {
		return nil, fmt.Errorf("ok transition: %w", err)
	}
	if record.Home, err = newTransitionField(node.HomeTransition, alloc); err != nil {
		return nil, fmt.Errorf("home transition: %w", err)
	}
	if enriched {
		record.Enriched = node.Enriched
	}

	return record, nil
}

func newAssetField(asset *story.MediaAsset, alloc *Allocation) (AssetField, error) {
	if asset == nil {
		return AssetField{}, nil
	}
	addr, ok := alloc.AssetAddr(asset)
	if !ok {
		return AssetField{}, fmt.Errorf("asset was not allocated: %w", packerrors.ErrUnsupportedAssetFormat)
	}
	return AssetField{Present: true, Offset: uint32(addr.Offset), Sectors: uint32(addr.Sectors)}, nil
}

// newTransitionField resolves the target action node address. A missing
// address means the graph changed after allocation and is a hard error.
func newTransitionField(t *story.Transition, alloc *Allocation) (TransitionField, error) {
	if t == nil {
		return TransitionField{}, nil
	}
	addr, ok := alloc.ActionNodeAddr(t.ActionNode)
	if !ok {
		return TransitionField{}, packerrors.ErrActionNodeNotAllocated
	}
	optionCount := len(t.ActionNode.Options)
	if t.OptionIndex < 0 || t.OptionIndex >= optionCount {
		return TransitionField{}, fmt.Errorf("index %d of %d: %w", t.OptionIndex, optionCount, packerrors.ErrInvalidOptionIndex)
	}
	return TransitionField{
		Present:     true,
		ActionAddr:  uint16(addr),
		OptionCount: uint16(optionCount),
		OptionIndex: uint16(t.OptionIndex),
	}, nil
}

func newActionNodeRecord(node *story.ActionNode, alloc *Allocation, enriched bool) (*ActionNodeRecord, error) {
	record := &ActionNodeRecord{Options: make([]uint16, len(node.Options))}
	for i, option := range node.Options {
		idx, ok := alloc.StageNodeIndex(option)
		if !ok {
			return nil, fmt.Errorf("option %d: %w", i, packerrors.ErrUnknownStageNode)
		}
		record.Options[i] = uint16(idx)
	}
	if enriched {
		record.Enriched = node.Enriched
	}
	return record, nil
}
