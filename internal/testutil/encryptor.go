package testutil

import (
	"shuttle-go/internal/encryption"
	"shuttle-go/internal/shuttle"
)

// NewStubEncryptor returns the reversible stub encryptor as a
// shuttle.Encryptor.
func NewStubEncryptor() shuttle.Encryptor {
	return encryption.NewStubEncryptor()
}
