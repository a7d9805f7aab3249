package pkg

import "errors"

var (
	// Verification errors 🔍
	ErrVerificationFailed = errors.New("❌ story pack verification failed")
)
