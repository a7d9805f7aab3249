package format_raw

import (
	"bytes"
	"fmt"

	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// VerifySignature checks the trailing signature block and that everything
// before it is a whole number of sectors.
func (r *Reader) VerifySignature() (bool, error) {
	if _, err := r.DataSectors(); err != nil {
		return false, err
	}

	trailer := make([]byte, SignatureSize())
	if _, err := r.src.ReadAt(trailer, r.size-int64(SignatureSize())); err != nil {
		return false, err
	}
	if !bytes.Equal(trailer, signatureBytes) {
		return false, packerrors.ErrInvalidSignature
	}

	r.logger.Debug("🔏 Trailing signature valid", "size", len(trailer))
	return true, nil
}

// VerifyLayout decodes the pack and checks every stored address against the
// order the encoder assigns them in: action nodes from the first free sector
// in transition order, then images, then audio, each region right after the
// previous one and the last one ending at the signature. The returned
// Allocation describes the pack as stored.
func (r *Reader) VerifyLayout(opts ReadOptions) (*Allocation, error) {
	pack, d, err := r.readPack(opts)
	if err != nil {
		return nil, err
	}
	total, err := r.DataSectors()
	if err != nil {
		return nil, err
	}

	alloc := &Allocation{
		stageNodeCount: len(pack.StageNodes),
		stageIndex:     pack.StageNodeIndex(),
		actionAddrs:    make(map[*story.ActionNode]int),
		assetsByDigest: make(map[string]AssetAddr),
		assetsByRef:    make(map[*story.MediaAsset]AssetAddr),
	}

	next := alloc.stageNodeCount
	for _, t := range pack.Transitions() {
		if _, seen := alloc.actionAddrs[t.ActionNode]; seen {
			continue
		}
		if stored := int(d.actionAddrs[t.ActionNode]); stored != next {
			return nil, fmt.Errorf("action node stored at %d, expected at %d: %w", stored, next, packerrors.ErrInvalidAddress)
		}
		alloc.actionAddrs[t.ActionNode] = next
		alloc.actionNodes = append(alloc.actionNodes, ActionNodeSlot{Addr: next, Node: t.ActionNode})
		next++
	}

	for _, category := range []story.AssetCategory{story.CategoryImage, story.CategoryAudio} {
		for _, asset := range pack.Assets(category) {
			if _, seen := alloc.assetsByRef[asset]; seen {
				continue
			}
			stored := d.assetFields[asset]
			if int(stored.Offset) != next {
				return nil, fmt.Errorf("%s asset stored at %d, expected at %d: %w", category, stored.Offset, next, packerrors.ErrInvalidAddress)
			}
			addr := AssetAddr{Category: category, Offset: next, Sectors: int(stored.Sectors)}
			digest := ContentDigest(asset.Data)
			alloc.assetsByRef[asset] = addr
			if _, dup := alloc.assetsByDigest[digest]; !dup {
				alloc.assetsByDigest[digest] = addr
			}
			alloc.assets = append(alloc.assets, AssetSlot{Addr: addr, Digest: digest, Data: asset.Data})
			next += addr.Sectors
		}
	}
	alloc.endOffset = next

	if next != total {
		return alloc, fmt.Errorf("layout needs %d sectors, pack has %d: %w", next, total, packerrors.ErrInvalidAddress)
	}

	r.logger.Debug("📐 Layout matches stored addresses", "sectors", total, "action_nodes", len(alloc.actionNodes), "assets", len(alloc.assets))
	return alloc, nil
}
