package format_raw

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// AssetAddr is the sector interval an asset occupies
type AssetAddr struct {
	Category story.AssetCategory
	Offset   int
	Sectors  int
}

// ActionNodeSlot is an action node together with its sector address
type ActionNodeSlot struct {
	Addr int
	Node *story.ActionNode
}

// AssetSlot is a distinct asset content together with its sector interval
type AssetSlot struct {
	Addr   AssetAddr
	Digest string
	Data   []byte
}

// Allocation holds the address tables computed for one encode call.
//
// Addresses are sector offsets relative to the sector following the header.
// Stage nodes occupy 0..N-1, action nodes follow, then images, then audio.
type Allocation struct {
	stageNodeCount int
	stageIndex     map[*story.StageNode]int

	actionAddrs map[*story.ActionNode]int
	actionNodes []ActionNodeSlot

	assetsByDigest map[string]AssetAddr
	assetsByRef    map[*story.MediaAsset]AssetAddr
	assets         []AssetSlot

	endOffset int
}

// Allocate assigns sector addresses to every action node and every distinct
// asset of the pack. Asset formats are checked before any address is handed out.
func Allocate(pack *story.Pack, logger hclog.Logger) (*Allocation, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if pack == nil {
		return nil, fmt.Errorf("nil pack")
	}

	stageNodeCount := len(pack.StageNodes)
	if stageNodeCount > MaxStageNodes {
		return nil, fmt.Errorf("%d stage nodes: %w", stageNodeCount, packerrors.ErrAddressOverflow)
	}
	for i, node := range pack.StageNodes {
		if node == nil {
			return nil, fmt.Errorf("stage node %d: %w", i, packerrors.ErrNilStageNode)
		}
	}

	// 🔍 Reject compressed media up front
	for _, category := range []story.AssetCategory{story.CategoryImage, story.CategoryAudio} {
		if err := checkAssetFormats(pack, category); err != nil {
			return nil, err
		}
	}

	alloc := &Allocation{
		stageNodeCount: stageNodeCount,
		stageIndex:     pack.StageNodeIndex(),
		actionAddrs:    make(map[*story.ActionNode]int),
		assetsByDigest: make(map[string]AssetAddr),
		assetsByRef:    make(map[*story.MediaAsset]AssetAddr),
	}

	nextFreeOffset := stageNodeCount
	for _, t := range pack.Transitions() {
		if t.ActionNode == nil {
			return nil, fmt.Errorf("transition without action node: %w", packerrors.ErrActionNodeNotAllocated)
		}
		if n := len(t.ActionNode.Options); t.OptionIndex < 0 || t.OptionIndex >= n {
			return nil, fmt.Errorf("index %d of %d: %w", t.OptionIndex, n, packerrors.ErrInvalidOptionIndex)
		}
		if _, seen := alloc.actionAddrs[t.ActionNode]; seen {
			continue
		}
		if nextFreeOffset > MaxShortField {
			return nil, fmt.Errorf("action node address %d: %w", nextFreeOffset, packerrors.ErrAddressOverflow)
		}
		if err := alloc.checkActionNode(t.ActionNode); err != nil {
			return nil, fmt.Errorf("action node at %d: %w", nextFreeOffset, err)
		}
		alloc.actionAddrs[t.ActionNode] = nextFreeOffset
		alloc.actionNodes = append(alloc.actionNodes, ActionNodeSlot{Addr: nextFreeOffset, Node: t.ActionNode})
		nextFreeOffset++
	}
	logger.Debug("🧭 Action nodes allocated", "count", len(alloc.actionNodes), "next_offset", nextFreeOffset)

	var err error
	for _, category := range []story.AssetCategory{story.CategoryImage, story.CategoryAudio} {
		nextFreeOffset, err = alloc.allocateAssets(pack, category, nextFreeOffset, logger)
		if err != nil {
			return nil, err
		}
	}
	alloc.endOffset = nextFreeOffset

	sort.Slice(alloc.actionNodes, func(i, j int) bool {
		return alloc.actionNodes[i].Addr < alloc.actionNodes[j].Addr
	})
	sort.Slice(alloc.assets, func(i, j int) bool {
		return alloc.assets[i].Addr.Offset < alloc.assets[j].Addr.Offset
	})

	logger.Debug("✅ Address space allocated",
		"stage_nodes", stageNodeCount,
		"action_nodes", len(alloc.actionNodes),
		"assets", len(alloc.assets),
		"sectors", alloc.endOffset)

	return alloc, nil
}

func checkAssetFormats(pack *story.Pack, category story.AssetCategory) error {
	want := category.RawType()
	for i, node := range pack.StageNodes {
		var asset *story.MediaAsset
		if category == story.CategoryImage {
			asset = node.Image
		} else {
			asset = node.Audio
		}
		if asset == nil {
			continue
		}
		if asset.Type != want {
			return fmt.Errorf("stage node %d %s is %s, want %s; uncompress the pack assets first: %w",
				i, category, asset.Type, want, packerrors.ErrUnsupportedAssetFormat)
		}
		if len(asset.Data) == 0 {
			return fmt.Errorf("stage node %d %s is empty: %w", i, category, packerrors.ErrUnsupportedAssetFormat)
		}
	}
	return nil
}

func (a *Allocation) checkActionNode(node *story.ActionNode) error {
	if len(node.Options) > MaxActionOptions {
		return fmt.Errorf("%d options: %w", len(node.Options), packerrors.ErrRecordOverflow)
	}
	for i, option := range node.Options {
		if _, ok := a.stageIndex[option]; !ok {
			return fmt.Errorf("option %d: %w", i, packerrors.ErrUnknownStageNode)
		}
	}
	return nil
}

func (a *Allocation) allocateAssets(pack *story.Pack, category story.AssetCategory, nextFreeOffset int, logger hclog.Logger) (int, error) {
	for _, asset := range pack.Assets(category) {
		if _, seen := a.assetsByRef[asset]; seen {
			continue
		}
		digest := ContentDigest(asset.Data)
		if addr, seen := a.assetsByDigest[digest]; seen {
			a.assetsByRef[asset] = addr
			continue
		}

		sectors := SectorsFor(len(asset.Data))
		if sectors > MaxIntField || nextFreeOffset+sectors-1 > MaxIntField {
			return 0, fmt.Errorf("%s asset at %d (%d sectors): %w", category, nextFreeOffset, sectors, packerrors.ErrAddressOverflow)
		}
		addr := AssetAddr{Category: category, Offset: nextFreeOffset, Sectors: sectors}
		a.assetsByDigest[digest] = addr
		a.assetsByRef[asset] = addr
		a.assets = append(a.assets, AssetSlot{Addr: addr, Digest: digest, Data: asset.Data})
		logger.Trace("🖼️ Asset allocated", "category", category, "offset", addr.Offset, "sectors", sectors, "digest", digest[:16])
		nextFreeOffset += sectors
	}
	return nextFreeOffset, nil
}

// SectorsFor returns the number of whole sectors needed to hold size bytes
func SectorsFor(size int) int {
	return (size + SectorSize - 1) / SectorSize
}

// StageNodeCount returns the number of stage nodes, which is also the first action node address
func (a *Allocation) StageNodeCount() int {
	return a.stageNodeCount
}

// StageNodeIndex returns the address of a stage node
func (a *Allocation) StageNodeIndex(node *story.StageNode) (int, bool) {
	idx, ok := a.stageIndex[node]
	return idx, ok
}

// ActionNodeAddr returns the address allocated to an action node
func (a *Allocation) ActionNodeAddr(node *story.ActionNode) (int, bool) {
	addr, ok := a.actionAddrs[node]
	return addr, ok
}

// AssetAddr returns the interval allocated to an asset's content
func (a *Allocation) AssetAddr(asset *story.MediaAsset) (AssetAddr, bool) {
	if addr, ok := a.assetsByRef[asset]; ok {
		return addr, true
	}
	addr, ok := a.assetsByDigest[ContentDigest(asset.Data)]
	return addr, ok
}

// ActionNodes returns the action nodes in ascending address order
func (a *Allocation) ActionNodes() []ActionNodeSlot {
	return a.actionNodes
}

// Assets returns the distinct assets in ascending address order, images first
func (a *Allocation) Assets() []AssetSlot {
	return a.assets
}

// EndOffset returns the first address past the last allocated sector
func (a *Allocation) EndOffset() int {
	return a.endOffset
}

// FileSize returns the exact size of the encoded pack in bytes
func (a *Allocation) FileSize() int64 {
	return int64(1+a.endOffset)*SectorSize + int64(SignatureSize())
}

// CheckRecords reports action node records that would not fit their sector
// once enrichment blocks are written.
func (a *Allocation) CheckRecords(enriched bool) error {
	if !enriched {
		return nil
	}
	for _, slot := range a.actionNodes {
		if slot.Node.Enriched == nil {
			continue
		}
		n := len(slot.Node.Options)
		if size := actionEnrichmentOffset(n) + NodeEnrichmentSize; size > SectorSize {
			return fmt.Errorf("action node %d: %d options need %d bytes: %w", slot.Addr, n, size, packerrors.ErrRecordOverflow)
		}
	}
	return nil
}
