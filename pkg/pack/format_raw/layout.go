package format_raw

import (
	"fmt"

	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// RegionKind names a part of the container
type RegionKind string

const (
	RegionHeader     RegionKind = "header"
	RegionStageNode  RegionKind = "stage"
	RegionActionNode RegionKind = "action"
	RegionImage      RegionKind = "image"
	RegionAudio      RegionKind = "audio"
	RegionSignature  RegionKind = "signature"
)

// Region is one entry of the physical layout. FileOffset is in bytes from the
// start of the file; Addr is the sector address, -1 for the header and signature.
type Region struct {
	Kind       RegionKind
	Label      string
	Addr       int
	Sectors    int
	FileOffset int64
	Size       int64
}

// Layout lists every region of the encoded pack in file order
func (a *Allocation) Layout() []Region {
	regions := make([]Region, 0, 2+a.stageNodeCount+len(a.actionNodes)+len(a.assets))
	regions = append(regions, Region{
		Kind:    RegionHeader,
		Label:   "header",
		Addr:    -1,
		Sectors: 1,
		Size:    SectorSize,
	})
	for i := 0; i < a.stageNodeCount; i++ {
		regions = append(regions, sectorRegion(RegionStageNode, fmt.Sprintf("stage node %d", i), i, 1))
	}
	for _, slot := range a.actionNodes {
		label := fmt.Sprintf("action node (%d options)", len(slot.Node.Options))
		regions = append(regions, sectorRegion(RegionActionNode, label, slot.Addr, 1))
	}
	for _, slot := range a.assets {
		kind := RegionAudio
		if slot.Addr.Category == story.CategoryImage {
			kind = RegionImage
		}
		r := sectorRegion(kind, slot.Digest[:16], slot.Addr.Offset, slot.Addr.Sectors)
		regions = append(regions, r)
	}
	regions = append(regions, Region{
		Kind:       RegionSignature,
		Label:      "signature",
		Addr:       -1,
		FileOffset: int64(1+a.endOffset) * SectorSize,
		Size:       int64(SignatureSize()),
	})
	return regions
}

func sectorRegion(kind RegionKind, label string, addr, sectors int) Region {
	return Region{
		Kind:       kind,
		Label:      label,
		Addr:       addr,
		Sectors:    sectors,
		FileOffset: int64(1+addr) * SectorSize,
		Size:       int64(sectors) * SectorSize,
	}
}
