package format_raw

import (
	"errors"
	"testing"

	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// TestAllocateMenuPack checks the address map of a small graph with shared nodes and assets
func TestAllocateMenuPack(t *testing.T) {
	logger := testLogger("allocator_test")
	pack := menuPack(t)

	alloc, err := Allocate(pack, logger)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	cover, storyA, storyB := pack.StageNodes[0], pack.StageNodes[1], pack.StageNodes[2]
	menu := cover.OkTransition.ActionNode
	back := storyA.HomeTransition.ActionNode

	actionCases := []struct {
		name string
		node *story.ActionNode
		want int
	}{
		{"menu", menu, 3},
		{"back", back, 4},
	}
	for _, tc := range actionCases {
		t.Run("action_"+tc.name, func(t *testing.T) {
			addr, ok := alloc.ActionNodeAddr(tc.node)
			if !ok {
				t.Fatalf("action node %s not allocated", tc.name)
			}
			if addr != tc.want {
				t.Errorf("ActionNodeAddr = %d, want %d", addr, tc.want)
			}
		})
	}

	assetCases := []struct {
		name    string
		asset   *story.MediaAsset
		offset  int
		sectors int
	}{
		{"cover image", cover.Image, 5, 2},
		{"storyA image", storyA.Image, 7, 1},
		{"storyB image shares pointer", storyB.Image, 7, 1},
		{"cover audio", cover.Audio, 8, 3},
		{"storyA audio", storyA.Audio, 11, 1},
		{"storyB audio shares content", storyB.Audio, 8, 3},
	}
	for _, tc := range assetCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, ok := alloc.AssetAddr(tc.asset)
			if !ok {
				t.Fatalf("asset not allocated")
			}
			if addr.Offset != tc.offset {
				t.Errorf("Offset = %d, want %d", addr.Offset, tc.offset)
			}
			if addr.Sectors != tc.sectors {
				t.Errorf("Sectors = %d, want %d", addr.Sectors, tc.sectors)
			}
		})
	}

	if got := len(alloc.ActionNodes()); got != 2 {
		t.Errorf("len(ActionNodes) = %d, want 2", got)
	}
	if got := len(alloc.Assets()); got != 4 {
		t.Errorf("len(Assets) = %d, want 4", got)
	}
	if got := alloc.EndOffset(); got != 12 {
		t.Errorf("EndOffset = %d, want 12", got)
	}
	if got, want := alloc.FileSize(), int64(13*SectorSize+SignatureSize()); got != want {
		t.Errorf("FileSize = %d, want %d", got, want)
	}
}

// TestAllocateContiguous checks that regions tile the address space without gaps
func TestAllocateContiguous(t *testing.T) {
	alloc, err := Allocate(menuPack(t), testLogger("allocator_test"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	next := alloc.StageNodeCount()
	for _, slot := range alloc.ActionNodes() {
		if slot.Addr != next {
			t.Errorf("action node at %d, want %d", slot.Addr, next)
		}
		next++
	}
	lastCategory := story.CategoryImage
	for _, slot := range alloc.Assets() {
		if slot.Addr.Offset != next {
			t.Errorf("%s asset at %d, want %d", slot.Addr.Category, slot.Addr.Offset, next)
		}
		if slot.Addr.Category < lastCategory {
			t.Errorf("%s asset at %d follows audio", slot.Addr.Category, slot.Addr.Offset)
		}
		lastCategory = slot.Addr.Category
		next += slot.Addr.Sectors
	}
	if next != alloc.EndOffset() {
		t.Errorf("regions end at %d, EndOffset = %d", next, alloc.EndOffset())
	}
}

func TestAllocateEmptyPack(t *testing.T) {
	alloc, err := Allocate(&story.Pack{}, testLogger("allocator_test"))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if alloc.EndOffset() != 0 {
		t.Errorf("EndOffset = %d, want 0", alloc.EndOffset())
	}
	if got, want := alloc.FileSize(), int64(SectorSize+SignatureSize()); got != want {
		t.Errorf("FileSize = %d, want %d", got, want)
	}
}

// TestAllocateErrors covers graphs the allocator must refuse
func TestAllocateErrors(t *testing.T) {
	logger := testLogger("allocator_test")

	testCases := []struct {
		name  string
		build func(t *testing.T) *story.Pack
		want  error
	}{
		{
			name: "png image",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes[1].Image = &story.MediaAsset{Type: story.MediaPNG, Data: []byte{0x89, 'P', 'N', 'G'}}
				return p
			},
			want: packerrors.ErrUnsupportedAssetFormat,
		},
		{
			name: "ogg audio",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes[2].Audio = &story.MediaAsset{Type: story.MediaOGG, Data: []byte("OggS")}
				return p
			},
			want: packerrors.ErrUnsupportedAssetFormat,
		},
		{
			name: "empty asset",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes[0].Image = &story.MediaAsset{Type: story.MediaBMP}
				return p
			},
			want: packerrors.ErrUnsupportedAssetFormat,
		},
		{
			name: "nil stage node",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes = append(p.StageNodes, nil)
				return p
			},
			want: packerrors.ErrNilStageNode,
		},
		{
			name: "transition without action node",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes[1].OkTransition = &story.Transition{}
				return p
			},
			want: packerrors.ErrActionNodeNotAllocated,
		},
		{
			name: "option index past the options",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				p.StageNodes[2].HomeTransition = &story.Transition{
					ActionNode:  p.StageNodes[0].OkTransition.ActionNode,
					OptionIndex: 2,
				}
				return p
			},
			want: packerrors.ErrInvalidOptionIndex,
		},
		{
			name: "option outside the pack",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				menu := p.StageNodes[0].OkTransition.ActionNode
				menu.Options = append(menu.Options, stageNode("orphan"))
				return p
			},
			want: packerrors.ErrUnknownStageNode,
		},
		{
			name: "too many options",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				menu := p.StageNodes[0].OkTransition.ActionNode
				for len(menu.Options) <= MaxActionOptions {
					menu.Options = append(menu.Options, p.StageNodes[1])
				}
				return p
			},
			want: packerrors.ErrRecordOverflow,
		},
		{
			name: "too many stage nodes",
			build: func(t *testing.T) *story.Pack {
				p := &story.Pack{StageNodes: make([]*story.StageNode, MaxStageNodes+1)}
				return p
			},
			want: packerrors.ErrAddressOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Allocate(tc.build(t), logger)
			if !errors.Is(err, tc.want) {
				t.Errorf("Allocate error = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestAllocateActionAddressOverflow fills the 16-bit address space with action nodes
func TestAllocateActionAddressOverflow(t *testing.T) {
	target := stageNode("target")
	pack := &story.Pack{StageNodes: []*story.StageNode{target}}
	for i := 0; i < MaxShortField; i++ {
		node := stageNode("filler")
		node.OkTransition = &story.Transition{
			ActionNode: &story.ActionNode{Options: []*story.StageNode{target}},
		}
		pack.StageNodes = append(pack.StageNodes, node)
	}

	// 0xFFFF stage nodes now, so the first action node already lands on 0xFFFF
	_, err := Allocate(pack, nil)
	if !errors.Is(err, packerrors.ErrAddressOverflow) {
		t.Errorf("Allocate error = %v, want %v", err, packerrors.ErrAddressOverflow)
	}
}

func TestSectorsFor(t *testing.T) {
	testCases := []struct {
		size int
		want int
	}{
		{0, 0},
		{1, 1},
		{SectorSize - 1, 1},
		{SectorSize, 1},
		{SectorSize + 1, 2},
		{10 * SectorSize, 10},
	}
	for _, tc := range testCases {
		if got := SectorsFor(tc.size); got != tc.want {
			t.Errorf("SectorsFor(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestLayoutRegions(t *testing.T) {
	alloc, err := Allocate(menuPack(t), nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	regions := alloc.Layout()
	// header + 3 stage + 2 action + 4 assets + signature
	if len(regions) != 11 {
		t.Fatalf("len(Layout) = %d, want 11", len(regions))
	}
	if regions[0].Kind != RegionHeader || regions[0].FileOffset != 0 {
		t.Errorf("first region = %+v, want header at 0", regions[0])
	}

	var end int64
	for i, r := range regions {
		if r.FileOffset != end {
			t.Errorf("region %d (%s) at %d, want %d", i, r.Kind, r.FileOffset, end)
		}
		end = r.FileOffset + r.Size
	}
	if end != alloc.FileSize() {
		t.Errorf("layout ends at %d, FileSize = %d", end, alloc.FileSize())
	}
	if last := regions[len(regions)-1]; last.Kind != RegionSignature {
		t.Errorf("last region kind = %s, want %s", last.Kind, RegionSignature)
	}
}
