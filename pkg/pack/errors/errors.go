package errors

import "errors"

var (
	// Encoding errors 📼
	ErrUnsupportedAssetFormat = errors.New("❌ unsupported asset format")
	ErrAddressOverflow        = errors.New("❌ address does not fit its field")
	ErrRecordOverflow         = errors.New("❌ record does not fit in one sector")
	ErrIOFailure              = errors.New("❌ write to destination failed")

	// Graph invariant errors 🕸️
	ErrActionNodeNotAllocated = errors.New("❌ action node has no allocated address")
	ErrUnknownStageNode       = errors.New("❌ action node option is not a stage node of the pack")
	ErrNilStageNode           = errors.New("❌ nil stage node")
	ErrInvalidOptionIndex     = errors.New("❌ option index outside of action node options")

	// Decoding errors 📂
	ErrInvalidSignature = errors.New("❌ invalid trailing signature")
	ErrTruncatedPack    = errors.New("❌ truncated pack")
	ErrInvalidAddress   = errors.New("❌ address outside of pack")

	// Output errors 💾
	ErrDestinationLocked = errors.New("❌ destination is locked by another writer")
	ErrInsufficientSpace = errors.New("❌ insufficient disk space")
)
