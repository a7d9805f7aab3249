package format_raw

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

func testLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.Trace,
	})
}

// testBMP returns size bytes with a BMP signature and file size field
func testBMP(t *testing.T, size int, fill byte) *story.MediaAsset {
	t.Helper()
	if size < 6 {
		t.Fatalf("bmp fixture needs at least 6 bytes, got %d", size)
	}
	data := make([]byte, size)
	data[0], data[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(data[2:6], uint32(size))
	for i := 6; i < size; i++ {
		data[i] = fill
	}
	return &story.MediaAsset{Type: story.MediaBMP, Data: data}
}

// testWAV returns size bytes with a RIFF/WAVE header
func testWAV(t *testing.T, size int, fill byte) *story.MediaAsset {
	t.Helper()
	if size < 12 {
		t.Fatalf("wav fixture needs at least 12 bytes, got %d", size)
	}
	data := make([]byte, size)
	copy(data[0:4], "RIFF")
	binary.LittleEndian.PutUint32(data[4:8], uint32(size-8))
	copy(data[8:12], "WAVE")
	for i := 12; i < size; i++ {
		data[i] = fill
	}
	return &story.MediaAsset{Type: story.MediaWAV, Data: data}
}

func stageNode(name string) *story.StageNode {
	return &story.StageNode{
		UUID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		ControlSettings: story.ControlSettings{
			WheelEnabled: true,
			OkEnabled:    true,
		},
	}
}

// menuPack is a cover with a two-entry menu, each entry looping back to the cover.
//
//	cover --ok--> menu[0]=storyA, menu[1]=storyB
//	storyA --home--> back[0]=cover
//	storyB --ok--> back[0]=cover, --home--> back[0]=cover
//
// storyB reuses storyA's image by pointer and the cover audio by content.
func menuPack(t *testing.T) *story.Pack {
	t.Helper()

	cover := stageNode("cover")
	storyA := stageNode("storyA")
	storyB := stageNode("storyB")

	cover.Image = testBMP(t, 600, 0x11)  // 2 sectors
	cover.Audio = testWAV(t, 1500, 0x22) // 3 sectors
	storyA.Image = testBMP(t, 100, 0x33)
	storyA.Audio = testWAV(t, 512, 0x44) // exactly 1 sector
	storyB.Image = storyA.Image
	storyB.Audio = &story.MediaAsset{Type: story.MediaWAV, Data: append([]byte(nil), cover.Audio.Data...)}

	menu := &story.ActionNode{Options: []*story.StageNode{storyA, storyB}}
	back := &story.ActionNode{Options: []*story.StageNode{cover}}

	cover.OkTransition = &story.Transition{ActionNode: menu, OptionIndex: 0}
	storyA.HomeTransition = &story.Transition{ActionNode: back, OptionIndex: 0}
	storyB.OkTransition = &story.Transition{ActionNode: back, OptionIndex: 0}
	storyB.HomeTransition = &story.Transition{ActionNode: back, OptionIndex: 0}

	return &story.Pack{
		StageNodes: []*story.StageNode{cover, storyA, storyB},
		Version:    3,
	}
}

func nodeType(t story.NodeType) *story.NodeType {
	return &t
}
