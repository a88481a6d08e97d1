package encryption

import (
	"fmt"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// NewEncryptorFromConfig picks the Encryptor implementation named by the
// config. An empty type means age. Key paths are not checked here; an
// encryptor with missing keys reports IsConfigured false and the transfer
// service skips encryption.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (shuttle.Encryptor, error) {
	switch cfg.Type {
	case "", "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewStubEncryptor(), nil
	}
	return nil, fmt.Errorf("encryption type %q is not supported", cfg.Type)
}
