package format_raw

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// ReadOptions controls how a pack is decoded
type ReadOptions struct {
	// Enriched decodes the authoring metadata blocks
	Enriched bool
}

// Reader reads raw story packs
type Reader struct {
	packPath string
	file     *os.File
	src      io.ReaderAt
	size     int64
	header   *HeaderRecord
	logger   hclog.Logger
}

// NewReader creates a reader for the pack file at packPath
func NewReader(packPath string) (*Reader, error) {
	return NewReaderWithLogger(packPath, hclog.NewNullLogger())
}

// NewReaderWithLogger creates a reader with a custom logger
func NewReaderWithLogger(packPath string, logger hclog.Logger) (*Reader, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reader{
		packPath: packPath,
		logger:   logger,
	}, nil
}

// NewReaderFrom reads a pack of the given size from src
func NewReaderFrom(src io.ReaderAt, size int64, logger hclog.Logger) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reader{src: src, size: size, logger: logger}
}

// Open opens the pack file
func (r *Reader) Open() error {
	if r.src != nil {
		return nil
	}

	file, err := os.Open(r.packPath)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}

	r.file = file
	r.src = file
	r.size = info.Size()
	return nil
}

// Close closes the pack file
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		r.src = nil
		return err
	}
	return nil
}

// Size returns the pack size in bytes
func (r *Reader) Size() (int64, error) {
	if err := r.Open(); err != nil {
		return 0, err
	}
	return r.size, nil
}

// DataSectors returns the number of addressable sectors after the header
func (r *Reader) DataSectors() (int, error) {
	if err := r.Open(); err != nil {
		return 0, err
	}
	body := r.size - int64(SignatureSize())
	if body < SectorSize || body%SectorSize != 0 {
		return 0, fmt.Errorf("pack size %d is not header + sectors + signature: %w", r.size, packerrors.ErrTruncatedPack)
	}
	return int(body/SectorSize) - 1, nil
}

// ReadSectors reads count sectors starting at address addr
func (r *Reader) ReadSectors(addr, count int) ([]byte, error) {
	total, err := r.DataSectors()
	if err != nil {
		return nil, err
	}
	if addr < 0 || count < 0 || addr+count > total {
		return nil, fmt.Errorf("sectors %d+%d of %d: %w", addr, count, total, packerrors.ErrInvalidAddress)
	}
	buf := make([]byte, count*SectorSize)
	if _, err := r.src.ReadAt(buf, int64(1+addr)*SectorSize); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadHeader reads the header sector
func (r *Reader) ReadHeader(enriched bool) (*HeaderRecord, error) {
	if err := r.Open(); err != nil {
		return nil, err
	}
	if r.size < SectorSize {
		return nil, fmt.Errorf("pack size %d: %w", r.size, packerrors.ErrTruncatedPack)
	}

	buf := make([]byte, SectorSize)
	if _, err := r.src.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	header, err := UnpackHeader(buf, enriched)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("📄 Header read", "stage_nodes", header.StageNodeCount, "version", header.Version)
	r.header = header
	return header, nil
}

// ReadStageNode reads the stage node at address addr
func (r *Reader) ReadStageNode(addr int, enriched bool) (*StageNodeRecord, error) {
	buf, err := r.ReadSectors(addr, 1)
	if err != nil {
		return nil, err
	}
	return UnpackStageNode(buf, enriched)
}

// ReadPack decodes the whole pack back into a story graph. Assets come back
// as their full sector span, zero padding included.
func (r *Reader) ReadPack(opts ReadOptions) (*story.Pack, error) {
	pack, _, err := r.readPack(opts)
	return pack, err
}

func (r *Reader) readPack(opts ReadOptions) (*story.Pack, *packDecoder, error) {
	header, err := r.ReadHeader(opts.Enriched)
	if err != nil {
		return nil, nil, err
	}
	count := int(header.StageNodeCount)

	total, err := r.DataSectors()
	if err != nil {
		return nil, nil, err
	}
	if count > total {
		return nil, nil, fmt.Errorf("%d stage nodes in %d sectors: %w", count, total, packerrors.ErrTruncatedPack)
	}

	pack := &story.Pack{
		StageNodes:      make([]*story.StageNode, count),
		Version:         int(header.Version),
		FactoryDisabled: header.FactoryDisabled,
		Enriched:        header.Enriched,
	}
	records := make([]*StageNodeRecord, count)
	for i := 0; i < count; i++ {
		record, err := r.ReadStageNode(i, opts.Enriched)
		if err != nil {
			return nil, nil, fmt.Errorf("stage node %d: %w", i, err)
		}
		records[i] = record
		pack.StageNodes[i] = &story.StageNode{
			UUID:            record.UUID,
			ControlSettings: record.Controls,
			Enriched:        record.Enriched,
		}
	}

	d := &packDecoder{
		r:           r,
		pack:        pack,
		opts:        opts,
		actionNodes: make(map[uint16]*story.ActionNode),
		actionAddrs: make(map[*story.ActionNode]uint16),
		assets:      make(map[uint32]*story.MediaAsset),
		assetFields: make(map[*story.MediaAsset]AssetField),
	}
	for i, record := range records {
		node := pack.StageNodes[i]
		if node.Image, err = d.asset(record.Image, story.CategoryImage); err != nil {
			return nil, nil, fmt.Errorf("stage node %d image: %w", i, err)
		}
		if node.Audio, err = d.asset(record.Audio, story.CategoryAudio); err != nil {
			return nil, nil, fmt.Errorf("stage node %d audio: %w", i, err)
		}
		if node.OkTransition, err = d.transition(record.Ok); err != nil {
			return nil, nil, fmt.Errorf("stage node %d ok transition: %w", i, err)
		}
		if node.HomeTransition, err = d.transition(record.Home); err != nil {
			return nil, nil, fmt.Errorf("stage node %d home transition: %w", i, err)
		}
	}

	r.logger.Debug("📂 Pack decoded",
		"stage_nodes", count,
		"action_nodes", len(d.actionNodes),
		"assets", len(d.assets))

	return pack, d, nil
}

// packDecoder shares action nodes and assets by address while a pack is
// rebuilt, and remembers the stored address of each.
type packDecoder struct {
	r           *Reader
	pack        *story.Pack
	opts        ReadOptions
	actionNodes map[uint16]*story.ActionNode
	actionAddrs map[*story.ActionNode]uint16
	assets      map[uint32]*story.MediaAsset
	assetFields map[*story.MediaAsset]AssetField
}

func (d *packDecoder) transition(f TransitionField) (*story.Transition, error) {
	if !f.Present {
		return nil, nil
	}
	node, ok := d.actionNodes[f.ActionAddr]
	if !ok {
		count := len(d.pack.StageNodes)
		if int(f.ActionAddr) < count {
			return nil, fmt.Errorf("action node address %d is a stage node: %w", f.ActionAddr, packerrors.ErrInvalidAddress)
		}
		buf, err := d.r.ReadSectors(int(f.ActionAddr), 1)
		if err != nil {
			return nil, err
		}
		record, err := UnpackActionNode(buf, int(f.OptionCount), d.opts.Enriched)
		if err != nil {
			return nil, err
		}
		node = &story.ActionNode{
			Options:  make([]*story.StageNode, len(record.Options)),
			Enriched: record.Enriched,
		}
		for i, option := range record.Options {
			if int(option) >= count {
				return nil, fmt.Errorf("option %d points at %d: %w", i, option, packerrors.ErrInvalidAddress)
			}
			node.Options[i] = d.pack.StageNodes[option]
		}
		d.actionNodes[f.ActionAddr] = node
		d.actionAddrs[node] = f.ActionAddr
	}
	if int(f.OptionCount) != len(node.Options) {
		return nil, fmt.Errorf("action node %d read with %d options, now %d: %w",
			f.ActionAddr, len(node.Options), f.OptionCount, packerrors.ErrInvalidAddress)
	}
	if f.OptionIndex >= f.OptionCount {
		return nil, fmt.Errorf("index %d of %d: %w", f.OptionIndex, f.OptionCount, packerrors.ErrInvalidOptionIndex)
	}
	return &story.Transition{ActionNode: node, OptionIndex: int(f.OptionIndex)}, nil
}

func (d *packDecoder) asset(f AssetField, category story.AssetCategory) (*story.MediaAsset, error) {
	if !f.Present {
		return nil, nil
	}
	if asset, ok := d.assets[f.Offset]; ok {
		if stored := d.assetFields[asset]; stored.Sectors != f.Sectors {
			return nil, fmt.Errorf("asset %d spans %d and %d sectors: %w", f.Offset, stored.Sectors, f.Sectors, packerrors.ErrInvalidAddress)
		}
		return asset, nil
	}
	if f.Sectors == 0 {
		return nil, fmt.Errorf("asset %d is empty: %w", f.Offset, packerrors.ErrInvalidAddress)
	}
	data, err := d.r.ReadSectors(int(f.Offset), int(f.Sectors))
	if err != nil {
		return nil, err
	}
	asset := &story.MediaAsset{Type: category.RawType(), Data: data}
	d.assets[f.Offset] = asset
	d.assetFields[asset] = f
	return asset, nil
}
