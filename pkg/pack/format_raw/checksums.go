package format_raw

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ContentDigest returns the hex BLAKE3-256 digest of data. It is only used as
// a deduplication key for media assets, never as an integrity check.
func ContentDigest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
