package format_raw

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	packerrors "github.com/provide-io/storypack/go/storypack/pkg/pack/errors"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// All multi-byte fields are big-endian.

const absentShort = 0xFFFF
const absentInt = 0xFFFFFFFF

// HeaderRecord is the first sector of a pack (1 sector)
type HeaderRecord struct {
	StageNodeCount  uint16
	FactoryDisabled bool
	Version         uint16
	Enriched        *story.PackEnrichment // nil writes no enrichment block
}

// Pack serializes the header to one sector
func (h *HeaderRecord) Pack() []byte {
	buf := make([]byte, SectorSize)

	binary.BigEndian.PutUint16(buf[0:2], h.StageNodeCount)
	if h.FactoryDisabled {
		buf[2] = 1
	}
	binary.BigEndian.PutUint16(buf[3:5], h.Version)

	if h.Enriched != nil {
		// buf[5:8] alignment padding
		off := HeaderFixedSize + PackEnrichmentAlignmentPadding
		copy(buf[off:off+TitleTruncate*2], EncodeTruncatedString(h.Enriched.Title, TitleTruncate))
		off += TitleTruncate * 2
		copy(buf[off:off+DescriptionTruncate*2], EncodeTruncatedString(h.Enriched.Description, DescriptionTruncate))
	}

	return buf
}

// UnpackHeader deserializes the header sector. The enrichment block is only
// read when enriched is set and holds at least one non-zero byte.
func UnpackHeader(data []byte, enriched bool) (*HeaderRecord, error) {
	if len(data) != SectorSize {
		return nil, fmt.Errorf("invalid header size: %d: %w", len(data), packerrors.ErrTruncatedPack)
	}

	h := &HeaderRecord{
		StageNodeCount:  binary.BigEndian.Uint16(data[0:2]),
		FactoryDisabled: data[2] != 0,
		Version:         binary.BigEndian.Uint16(data[3:5]),
	}

	block := data[HeaderFixedSize : PackEnrichmentSize+HeaderFixedSize]
	if enriched && !allZero(block) {
		off := PackEnrichmentAlignmentPadding
		h.Enriched = &story.PackEnrichment{
			Title:       DecodeTruncatedString(block[off : off+TitleTruncate*2]),
			Description: DecodeTruncatedString(block[off+TitleTruncate*2 : off+TitleTruncate*2+DescriptionTruncate*2]),
		}
	}

	return h, nil
}

// AssetField is an (offset, sector count) pair, both -1 when absent
type AssetField struct {
	Present bool
	Offset  uint32
	Sectors uint32
}

func (f AssetField) put(buf []byte) {
	if !f.Present {
		binary.BigEndian.PutUint32(buf[0:4], absentInt)
		binary.BigEndian.PutUint32(buf[4:8], absentInt)
		return
	}
	binary.BigEndian.PutUint32(buf[0:4], f.Offset)
	binary.BigEndian.PutUint32(buf[4:8], f.Sectors)
}

func readAssetField(buf []byte) AssetField {
	offset := binary.BigEndian.Uint32(buf[0:4])
	sectors := binary.BigEndian.Uint32(buf[4:8])
	if offset == absentInt && sectors == absentInt {
		return AssetField{}
	}
	return AssetField{Present: true, Offset: offset, Sectors: sectors}
}

// TransitionField is the 6-byte transition record, all -1 when absent
type TransitionField struct {
	Present     bool
	ActionAddr  uint16
	OptionCount uint16
	OptionIndex uint16
}

func (f TransitionField) put(buf []byte) {
	if !f.Present {
		binary.BigEndian.PutUint16(buf[0:2], absentShort)
		binary.BigEndian.PutUint16(buf[2:4], absentShort)
		binary.BigEndian.PutUint16(buf[4:6], absentShort)
		return
	}
	binary.BigEndian.PutUint16(buf[0:2], f.ActionAddr)
	binary.BigEndian.PutUint16(buf[2:4], f.OptionCount)
	binary.BigEndian.PutUint16(buf[4:6], f.OptionIndex)
}

func readTransitionField(buf []byte) TransitionField {
	f := TransitionField{
		ActionAddr:  binary.BigEndian.Uint16(buf[0:2]),
		OptionCount: binary.BigEndian.Uint16(buf[2:4]),
		OptionIndex: binary.BigEndian.Uint16(buf[4:6]),
	}
	f.Present = !(f.ActionAddr == absentShort && f.OptionCount == absentShort && f.OptionIndex == absentShort)
	return f
}

// StageNodeRecord is a stage node sector (1 sector)
type StageNodeRecord struct {
	UUID     uuid.UUID
	Image    AssetField
	Audio    AssetField
	Ok       TransitionField
	Home     TransitionField
	Controls story.ControlSettings
	Enriched *story.NodeEnrichment // nil writes no enrichment block
}

// Pack serializes the stage node to one sector
func (r *StageNodeRecord) Pack() []byte {
	buf := make([]byte, SectorSize)

	// uuid.UUID is the RFC 4122 byte order, i.e. both 64-bit halves big-endian
	copy(buf[0:16], r.UUID[:])
	r.Image.put(buf[16:24])
	r.Audio.put(buf[24:32])
	r.Ok.put(buf[32:38])
	r.Home.put(buf[38:44])
	putFlag(buf[44:46], r.Controls.WheelEnabled)
	putFlag(buf[46:48], r.Controls.OkEnabled)
	putFlag(buf[48:50], r.Controls.HomeEnabled)
	putFlag(buf[50:52], r.Controls.PauseEnabled)
	putFlag(buf[52:54], r.Controls.AutoJumpEnabled)

	if r.Enriched != nil {
		off := StageNodeFixedSize + StageNodeEnrichmentAlignmentPadding
		putNodeEnrichment(buf[off:off+NodeEnrichmentSize], r.Enriched)
	}

	return buf
}

// UnpackStageNode deserializes a stage node sector
func UnpackStageNode(data []byte, enriched bool) (*StageNodeRecord, error) {
	if len(data) != SectorSize {
		return nil, fmt.Errorf("invalid stage node size: %d: %w", len(data), packerrors.ErrTruncatedPack)
	}

	r := &StageNodeRecord{
		Image: readAssetField(data[16:24]),
		Audio: readAssetField(data[24:32]),
		Ok:    readTransitionField(data[32:38]),
		Home:  readTransitionField(data[38:44]),
		Controls: story.ControlSettings{
			WheelEnabled:    readFlag(data[44:46]),
			OkEnabled:       readFlag(data[46:48]),
			HomeEnabled:     readFlag(data[48:50]),
			PauseEnabled:    readFlag(data[50:52]),
			AutoJumpEnabled: readFlag(data[52:54]),
		},
	}
	copy(r.UUID[:], data[0:16])

	if enriched {
		off := StageNodeFixedSize + StageNodeEnrichmentAlignmentPadding
		r.Enriched = readNodeEnrichment(data[off : off+NodeEnrichmentSize])
	}

	return r, nil
}

// ActionNodeRecord is an action node sector (1 sector)
type ActionNodeRecord struct {
	Options  []uint16 // stage node addresses
	Enriched *story.NodeEnrichment
}

// actionEnrichmentOffset returns where the enrichment block starts after n options
func actionEnrichmentOffset(n int) int {
	off := 2 * n
	if overflow := off % ActionNodeEnrichmentAlignment; overflow > 0 {
		off += ActionNodeEnrichmentAlignment - overflow
	}
	return off + ActionNodeEnrichmentAlignmentPadding
}

// Pack serializes the action node to one sector
func (r *ActionNodeRecord) Pack() ([]byte, error) {
	size := 2 * len(r.Options)
	if r.Enriched != nil {
		size = actionEnrichmentOffset(len(r.Options)) + NodeEnrichmentSize
	}
	if size > SectorSize {
		return nil, fmt.Errorf("%d options need %d bytes: %w", len(r.Options), size, packerrors.ErrRecordOverflow)
	}

	buf := make([]byte, SectorSize)
	for i, option := range r.Options {
		binary.BigEndian.PutUint16(buf[2*i:2*i+2], option)
	}
	if r.Enriched != nil {
		off := actionEnrichmentOffset(len(r.Options))
		putNodeEnrichment(buf[off:off+NodeEnrichmentSize], r.Enriched)
	}

	return buf, nil
}

// UnpackActionNode deserializes an action node sector holding optionCount options
func UnpackActionNode(data []byte, optionCount int, enriched bool) (*ActionNodeRecord, error) {
	if len(data) != SectorSize {
		return nil, fmt.Errorf("invalid action node size: %d: %w", len(data), packerrors.ErrTruncatedPack)
	}
	if 2*optionCount > SectorSize {
		return nil, fmt.Errorf("%d options: %w", optionCount, packerrors.ErrRecordOverflow)
	}

	r := &ActionNodeRecord{Options: make([]uint16, optionCount)}
	for i := range r.Options {
		r.Options[i] = binary.BigEndian.Uint16(data[2*i : 2*i+2])
	}
	if off := actionEnrichmentOffset(optionCount); enriched && off+NodeEnrichmentSize <= SectorSize {
		r.Enriched = readNodeEnrichment(data[off : off+NodeEnrichmentSize])
	}

	return r, nil
}

// putNodeEnrichment writes the 85-byte node enrichment block
func putNodeEnrichment(buf []byte, e *story.NodeEnrichment) {
	off := NodeNameTruncate * 2
	copy(buf[0:off], EncodeTruncatedString(e.Name, NodeNameTruncate))
	// uuid.Nil is 16 zero bytes, the same as an absent group
	copy(buf[off:off+16], e.GroupID[:])
	off += 16
	if e.Type != nil {
		buf[off] = e.Type.Code()
	}
	off++
	if e.Position != nil {
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(e.Position.X))
		binary.BigEndian.PutUint16(buf[off+2:off+4], uint16(e.Position.Y))
	}
}

// readNodeEnrichment returns nil for an all-zero block
func readNodeEnrichment(buf []byte) *story.NodeEnrichment {
	if allZero(buf) {
		return nil
	}
	off := NodeNameTruncate * 2
	e := &story.NodeEnrichment{Name: DecodeTruncatedString(buf[0:off])}
	copy(e.GroupID[:], buf[off:off+16])
	off += 16
	if buf[off] != 0 {
		t := story.NodeType(buf[off])
		e.Type = &t
	}
	off++
	if !allZero(buf[off : off+4]) {
		e.Position = &story.Position{
			X: int16(binary.BigEndian.Uint16(buf[off : off+2])),
			Y: int16(binary.BigEndian.Uint16(buf[off+2 : off+4])),
		}
	}
	return e
}

func putFlag(buf []byte, v bool) {
	if v {
		binary.BigEndian.PutUint16(buf, 1)
	}
}

func readFlag(buf []byte) bool {
	return binary.BigEndian.Uint16(buf) != 0
}

func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
