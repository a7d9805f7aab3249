package format_raw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// failingWriter accepts limit bytes and then fails
type failingWriter struct {
	limit   int
	written int
}

var errDiskFull = errors.New("disk full")

func (f *failingWriter) Write(p []byte) (int, error) {
	room := f.limit - f.written
	if room <= 0 {
		return 0, errDiskFull
	}
	if len(p) > room {
		f.written += room
		return room, errDiskFull
	}
	f.written += len(p)
	return len(p), nil
}

func sectorAt(data []byte, addr int) []byte {
	start := (1 + addr) * SectorSize
	return data[start : start+SectorSize]
}

func TestEncodeEmptyPack(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriterWithLogger(testLogger("writer_test")).Encode(&story.Pack{}, &buf, false); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) != SectorSize+SignatureSize() {
		t.Fatalf("len = %d, want %d", len(data), SectorSize+SignatureSize())
	}
	if !allZero(data[:SectorSize]) {
		t.Errorf("empty pack header is not all zero")
	}
	if !bytes.Equal(data[SectorSize:], Signature()) {
		t.Errorf("trailing bytes are not the signature")
	}
}

func TestEncodeMenuPack(t *testing.T) {
	logger := testLogger("writer_test")
	pack := menuPack(t)

	var buf bytes.Buffer
	require.NoError(t, NewWriterWithLogger(logger).Encode(pack, &buf, false))
	data := buf.Bytes()

	require.Len(t, data, 13*SectorSize+SignatureSize())
	assert.Equal(t, 0, (len(data)-SignatureSize())%SectorSize, "body is sector aligned")
	assert.Equal(t, Signature(), data[len(data)-SignatureSize():])

	// Header
	assert.Equal(t, uint16(3), binary.BigEndian.Uint16(data[0:2]))
	assert.Equal(t, byte(0), data[2])
	assert.Equal(t, uint16(3), binary.BigEndian.Uint16(data[3:5]))

	t.Run("stage nodes", func(t *testing.T) {
		cover := sectorAt(data, 0)
		assert.Equal(t, pack.StageNodes[0].UUID[:], cover[0:16])
		assert.Equal(t, []byte{0, 0, 0, 5, 0, 0, 0, 2}, cover[16:24], "cover image")
		assert.Equal(t, []byte{0, 0, 0, 8, 0, 0, 0, 3}, cover[24:32], "cover audio")
		assert.Equal(t, []byte{0, 3, 0, 2, 0, 0}, cover[32:38], "cover ok")
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), cover[38:44], "cover home")

		storyB := sectorAt(data, 2)
		assert.Equal(t, []byte{0, 0, 0, 7, 0, 0, 0, 1}, storyB[16:24], "storyB image shared by pointer")
		assert.Equal(t, []byte{0, 0, 0, 8, 0, 0, 0, 3}, storyB[24:32], "storyB audio shared by content")
		assert.Equal(t, []byte{0, 4, 0, 1, 0, 0}, storyB[32:38], "storyB ok")
		assert.Equal(t, []byte{0, 4, 0, 1, 0, 0}, storyB[38:44], "storyB home")
	})

	t.Run("action nodes", func(t *testing.T) {
		menu := sectorAt(data, 3)
		assert.Equal(t, []byte{0, 1, 0, 2}, menu[:4])
		assert.True(t, allZero(menu[4:]))

		back := sectorAt(data, 4)
		assert.True(t, allZero(back), "single option pointing at stage node 0")
	})

	t.Run("assets", func(t *testing.T) {
		cover := pack.StageNodes[0]
		image := data[(1+5)*SectorSize : (1+7)*SectorSize]
		assert.Equal(t, cover.Image.Data, image[:600])
		assert.True(t, allZero(image[600:]), "image sector padding")

		audio := data[(1+8)*SectorSize : (1+11)*SectorSize]
		assert.Equal(t, cover.Audio.Data, audio[:1500])
		assert.True(t, allZero(audio[1500:]), "audio sector padding")

		assert.Equal(t, pack.StageNodes[1].Audio.Data, sectorAt(data, 11))
	})
}

func TestEncodeDeterministic(t *testing.T) {
	pack := menuPack(t)

	var first, second bytes.Buffer
	require.NoError(t, Encode(pack, &first, true))
	require.NoError(t, Encode(pack, &second, true))

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("two encodings of the same pack differ")
	}
}

func TestEncodeEnrichedFlag(t *testing.T) {
	pack := menuPack(t)
	pack.Enriched = &story.PackEnrichment{Title: "Menu pack"}
	pack.StageNodes[0].Enriched = &story.NodeEnrichment{Name: "Cover", Type: nodeType(story.NodeTypeCover)}
	pack.StageNodes[0].OkTransition.ActionNode.Enriched = &story.NodeEnrichment{Name: "Menu"}

	var plain, enriched bytes.Buffer
	require.NoError(t, Encode(pack, &plain, false))
	require.NoError(t, Encode(pack, &enriched, true))

	require.Equal(t, plain.Len(), enriched.Len(), "enrichment never changes the layout")

	p, e := plain.Bytes(), enriched.Bytes()
	assert.True(t, allZero(p[HeaderFixedSize:SectorSize]))
	assert.False(t, allZero(e[HeaderFixedSize:SectorSize]))
	assert.True(t, allZero(sectorAt(p, 0)[StageNodeFixedSize:]))
	assert.False(t, allZero(sectorAt(e, 0)[StageNodeFixedSize:]))
	assert.Equal(t, []byte{0x00, 'M'}, sectorAt(e, 3)[32:34])
}

func TestEncodeFormatMismatchWritesNothing(t *testing.T) {
	pack := menuPack(t)
	pack.StageNodes[2].Image = &story.MediaAsset{Type: story.MediaJPEG, Data: []byte{0xFF, 0xD8, 0xFF}}

	var buf bytes.Buffer
	err := Encode(pack, &buf, false)
	if !errors.Is(err, packerrors.ErrUnsupportedAssetFormat) {
		t.Fatalf("Encode error = %v, want %v", err, packerrors.ErrUnsupportedAssetFormat)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written before the format error, want 0", buf.Len())
	}
}

func TestEncodeInvalidOptionIndex(t *testing.T) {
	testCases := []struct {
		name  string
		index int
	}{
		{"negative", -1},
		{"past the end", 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pack := menuPack(t)
			pack.StageNodes[0].OkTransition.OptionIndex = tc.index

			err := Encode(pack, &bytes.Buffer{}, false)
			if !errors.Is(err, packerrors.ErrInvalidOptionIndex) {
				t.Errorf("Encode error = %v, want %v", err, packerrors.ErrInvalidOptionIndex)
			}
		})
	}
}

func TestEncodeVersionOverflow(t *testing.T) {
	pack := &story.Pack{Version: 0x10000}
	err := Encode(pack, &bytes.Buffer{}, false)
	if !errors.Is(err, packerrors.ErrAddressOverflow) {
		t.Errorf("Encode error = %v, want %v", err, packerrors.ErrAddressOverflow)
	}
}

func TestEncodeIOFailure(t *testing.T) {
	testCases := []struct {
		name  string
		limit int
	}{
		{"nothing accepted", 0},
		{"partial body", 6 * SectorSize},
		{"partial signature", 13*SectorSize + 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Encode(menuPack(t), &failingWriter{limit: tc.limit}, false)
			if !errors.Is(err, packerrors.ErrIOFailure) {
				t.Errorf("Encode error = %v, want %v", err, packerrors.ErrIOFailure)
			}
			if !errors.Is(err, errDiskFull) {
				t.Errorf("Encode error = %v, want it to wrap %v", err, errDiskFull)
			}
		})
	}
}

// sectorSink records every byte that reaches the destination
type sectorSink struct {
	written int
}

func (s *sectorSink) Write(p []byte) (int, error) {
	s.written += len(p)
	return len(p), nil
}

func TestEncodeValidatesBeforeWriting(t *testing.T) {
	testCases := []struct {
		name     string
		enriched bool
		build    func(t *testing.T) *story.Pack
		want     error
	}{
		{
			name: "invalid option index on the last stage node",
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				// Enough stage nodes to flush the write buffer more than once
				for i := 0; i < 200; i++ {
					p.StageNodes = append(p.StageNodes, stageNode("filler"))
				}
				last := p.StageNodes[len(p.StageNodes)-1]
				last.OkTransition = &story.Transition{ActionNode: p.StageNodes[0].OkTransition.ActionNode, OptionIndex: 7}
				return p
			},
			want: packerrors.ErrInvalidOptionIndex,
		},
		{
			name:     "enriched action node past its sector",
			enriched: true,
			build: func(t *testing.T) *story.Pack {
				p := menuPack(t)
				menu := p.StageNodes[0].OkTransition.ActionNode
				for len(menu.Options) < 210 {
					menu.Options = append(menu.Options, p.StageNodes[1])
				}
				menu.Enriched = &story.NodeEnrichment{Name: "Menu"}
				return p
			},
			want: packerrors.ErrRecordOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &sectorSink{}
			err := Encode(tc.build(t), sink, tc.enriched)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Encode error = %v, want %v", err, tc.want)
			}
			if sink.written != 0 {
				t.Errorf("%d bytes reached the destination, want 0", sink.written)
			}
		})
	}
}

func TestEncodeEnrichedOverflowOnlyWhenEnriched(t *testing.T) {
	pack := menuPack(t)
	menu := pack.StageNodes[0].OkTransition.ActionNode
	for len(menu.Options) < 210 {
		menu.Options = append(menu.Options, pack.StageNodes[1])
	}
	menu.Enriched = &story.NodeEnrichment{Name: "Menu"}

	if err := Encode(pack, &bytes.Buffer{}, false); err != nil {
		t.Errorf("Encode without enrichment failed: %v", err)
	}
}

// TestEncodeSingleStageNode checks the smallest pack with content byte for byte
func TestEncodeSingleStageNode(t *testing.T) {
	node := &story.StageNode{
		UUID: uuid.MustParse("0123abcd-4567-89ef-0123-456789abcdef"),
		ControlSettings: story.ControlSettings{
			OkEnabled:    true,
			HomeEnabled:  true,
			PauseEnabled: true,
		},
	}
	pack := &story.Pack{StageNodes: []*story.StageNode{node}, Version: 1}

	var buf bytes.Buffer
	require.NoError(t, NewWriterWithLogger(testLogger("writer_test")).Encode(pack, &buf, false))
	data := buf.Bytes()

	require.Len(t, data, 2*SectorSize+SignatureSize())

	header := data[:SectorSize]
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x01}, header[:HeaderFixedSize], "count, factory flag, version")
	assert.True(t, allZero(header[HeaderFixedSize:]), "header padding")

	stage := sectorAt(data, 0)
	testCases := []struct {
		name  string
		start int
		want  []byte
	}{
		{"uuid", 0, node.UUID[:]},
		{"image absent", 16, bytes.Repeat([]byte{0xFF}, 8)},
		{"audio absent", 24, bytes.Repeat([]byte{0xFF}, 8)},
		{"ok transition absent", 32, bytes.Repeat([]byte{0xFF}, 6)},
		{"home transition absent", 38, bytes.Repeat([]byte{0xFF}, 6)},
		{"wheel, ok, home, pause, autojump", 44, []byte{0, 0, 0, 1, 0, 1, 0, 1, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := stage[tc.start : tc.start+len(tc.want)]
			if !bytes.Equal(got, tc.want) {
				t.Errorf("bytes at %d = % x, want % x", tc.start, got, tc.want)
			}
		})
	}
	assert.True(t, allZero(stage[StageNodeFixedSize:]), "stage node padding")
	assert.Equal(t, Signature(), data[2*SectorSize:])
}
