package store

import (
	"fmt"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// NewStoreFromConfig builds the DeviceStore a device config describes.
func NewStoreFromConfig(cfg config.DeviceConfig) (shuttle.DeviceStore, error) {
	switch cfg.Type {
	case "dir":
		return NewDirStore(cfg.Name, cfg.MountPoint)
	case "s3":
		return NewS3Store(cfg)
	case "memory":
		return NewMemoryStore(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown device type: %s", cfg.Type)
	}
}
