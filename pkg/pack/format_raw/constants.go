package format_raw

import (
	"encoding/base64"
	"strings"
)

// Core format constants that never change
// For defaults and configuration, see defaults.go

const (
	// Addressing granularity
	SectorSize = 512

	// Fixed record prefixes
	HeaderFixedSize     = 5  // count (2) + factory flag (1) + version (2)
	StageNodeFixedSize  = 54 // uuid (16) + 2 assets (16) + 2 transitions (12) + controls (10)
	TransitionSize      = 6
	AssetAddrSize       = 8
	ControlSettingsSize = 10

	// Enrichment layout
	PackEnrichmentAlignmentPadding       = 3
	TitleTruncate                        = 64  // UTF-16 code units
	DescriptionTruncate                  = 128 // UTF-16 code units
	StageNodeEnrichmentAlignmentPadding  = 10
	ActionNodeEnrichmentAlignment        = 16
	ActionNodeEnrichmentAlignmentPadding = 16
	NodeNameTruncate                     = 32 // UTF-16 code units
	NodeEnrichmentSize                   = NodeNameTruncate*2 + 16 + 1 + 4

	PackEnrichmentSize = PackEnrichmentAlignmentPadding + TitleTruncate*2 + DescriptionTruncate*2

	// Field ceilings, the all-ones value of each field is the absent sentinel
	MaxShortField = 0xFFFE
	MaxIntField   = 0xFFFFFFFE
	MaxStageNodes = 0xFFFF

	// Option stage indexes that fit before the end of an action node sector
	MaxActionOptions = SectorSize / 2
)

// signatureBase64 is the device's format recognition block
var signatureBase64 = strings.Join([]string{
	"X87Wfg5QRriuVdqMRciYiqOHpTE7d0d2sIFTfdWWLzTdOIgFyk5E4bFUWb6zSJrXX1OqF/Y2Tjiq",
	"IUmyp8HcBnMRaJJl7EkYgjeLtOm4mzMBFcw1TtxOepJNSgMD2U0i7MAjzlqtQASuoQZ9QB9j8ubi",
	"scY4ok7CpzstlZd86cbKemrby5ZNLZ6GtnIK1VrKwnuFM5FiRYad50XB59HJ3Lqb1EXCAEVdoT79",
	"jSCX9gH/jd25lzZHi5CDD2uYr7c/C53BKd0XTHOsp7fd94mHOEfWWcnJ50fNkfvH9va0dPmuZNn1",
	"V3JJeprkkEBmuEvmhaxDZrLUTaeJbiIOko4kSaHuNYDYk0MPhy1Wu8VC/7XtE/t9Jd9Cgqb+fhgI",
	"aUKzUBQPYiFYSAitSsb8zCM8OfOS1JR1jEfEm7XrqBWQ2ngPbYJBashIb4xIZ4p3ot/5Ow/4YWyZ",
	"TOOlZvd6QBvOrc6554gzXEctjzaaHuNzwjqqTTuPl49Ng5qAuidtbRw3aidGYi2vRXy4bsK173tl",
	"C1it9pkqJkgpvvXxw+mvPyQE7qh2Q9hBg5gOJfr3OeQc7Qr34J+LSOSRsBvPzDntJCdDNlPEt0lA",
	"mWIQD0usba3CRBHPhIJLqKCvifXDEFf/5Hn+gJAYTMWXDR1wKhl5Z2JFv1MsfEzli0TDGseDXh0=",
}, "")

// signatureBytes is decoded once; Signature hands out copies
var signatureBytes = mustDecodeSignature()

func mustDecodeSignature() []byte {
	b, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		panic("format_raw: invalid signature constant: " + err.Error())
	}
	return b
}

// Signature returns a copy of the trailing signature block
func Signature() []byte {
	out := make([]byte, len(signatureBytes))
	copy(out, signatureBytes)
	return out
}

// SignatureSize is the length of the trailing signature block
func SignatureSize() int {
	return len(signatureBytes)
}
