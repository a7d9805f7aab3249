package story

import (
	"bytes"
	"encoding/binary"
)

// MediaType is the encoding of a media asset's bytes
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaBMP
	MediaWAV
	MediaPNG
	MediaJPEG
	MediaOGG
	MediaMP3
)

func (m MediaType) String() string {
	switch m {
	case MediaBMP:
		return "bmp"
	case MediaWAV:
		return "wav"
	case MediaPNG:
		return "png"
	case MediaJPEG:
		return "jpeg"
	case MediaOGG:
		return "ogg"
	case MediaMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// MediaAsset is raw media content plus its declared type
type MediaAsset struct {
	Type MediaType
	Data []byte
}

// AssetCategory is the slot a media asset fills on a stage node
type AssetCategory int

const (
	CategoryImage AssetCategory = iota
	CategoryAudio
)

func (c AssetCategory) String() string {
	if c == CategoryImage {
		return "image"
	}
	return "audio"
}

// RawType returns the uncompressed media type a raw pack stores for a category
func (c AssetCategory) RawType() MediaType {
	if c == CategoryImage {
		return MediaBMP
	}
	return MediaWAV
}

// DetectMediaType sniffs the media type from leading magic bytes
func DetectMediaType(data []byte) MediaType {
	switch {
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return MediaBMP
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return MediaWAV
	case len(data) >= 8 && bytes.Equal(data[0:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return MediaPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return MediaJPEG
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return MediaOGG
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return MediaMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return MediaMP3
	}
	return MediaUnknown
}

// DeclaredLength returns the byte length a BMP or WAV header claims for the
// whole file, or -1 when the header does not declare one that fits in data.
func DeclaredLength(data []byte) int {
	switch DetectMediaType(data) {
	case MediaBMP:
		if len(data) < 6 {
			return -1
		}
		n := int(binary.LittleEndian.Uint32(data[2:6]))
		if n < 2 || n > len(data) {
			return -1
		}
		return n
	case MediaWAV:
		n := int(binary.LittleEndian.Uint32(data[4:8])) + 8
		if n < 12 || n > len(data) {
			return -1
		}
		return n
	}
	return -1
}
