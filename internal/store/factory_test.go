package store

import (
	"testing"

	"shuttle-go/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		device, err := NewStoreFromConfig(config.DeviceConfig{Type: "memory", Name: "phone"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := device.(*MemoryStore); !ok {
			t.Errorf("device = %T, want *MemoryStore", device)
		}
	})

	t.Run("dir", func(t *testing.T) {
		t.Parallel()
		device, err := NewStoreFromConfig(config.DeviceConfig{Type: "dir", Name: "phone", MountPoint: t.TempDir()})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := device.(*DirStore); !ok {
			t.Errorf("device = %T, want *DirStore", device)
		}
	})

	t.Run("s3", func(t *testing.T) {
		t.Parallel()
		device, err := NewStoreFromConfig(config.DeviceConfig{
			Type:        "s3",
			Name:        "bucket",
			S3Bucket:    "shuttle-test",
			S3Region:    "eu-central-1",
			S3AccessKey: "AKIATEST",
			S3SecretKey: "secret",
		})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := device.(*S3Store); !ok {
			t.Errorf("device = %T, want *S3Store", device)
		}
		if device.Name() != "bucket" {
			t.Errorf("Name() = %q, want %q", device.Name(), "bucket")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		if _, err := NewStoreFromConfig(config.DeviceConfig{Type: "ftp", Name: "x"}); err == nil {
			t.Errorf("NewStoreFromConfig() succeeded on an unknown type, want error")
		}
	})
}
