package store

import (
	"fmt"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// Registry knows the configured devices and opens stores on demand. A
// device counts as attached when its store can be built and lists top
// folders, so an unmounted dir store or an unreachable bucket simply
// shows up as detached instead of failing every command.
type Registry struct {
	configs []config.DeviceConfig
}

func NewRegistry(configs []config.DeviceConfig) *Registry {
	return &Registry{configs: configs}
}

// Names returns the configured device names in config order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for _, cfg := range r.configs {
		names = append(names, cfg.Name)
	}
	return names
}

// Open builds the store for the named device.
func (r *Registry) Open(name string) (shuttle.DeviceStore, error) {
	for _, cfg := range r.configs {
		if cfg.Name == name {
			return NewStoreFromConfig(cfg)
		}
	}
	return nil, fmt.Errorf("unknown device: %s", name)
}

// First opens the first attached device. With no devices configured it
// returns (nil, nil) and transfers run host-only.
func (r *Registry) First() (shuttle.DeviceStore, error) {
	if len(r.configs) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, cfg := range r.configs {
		device, err := NewStoreFromConfig(cfg)
		if err != nil {
			lastErr = err
			continue
		}
		return device, nil
	}
	return nil, fmt.Errorf("no device attached: %w", lastErr)
}

// DeviceStatus describes one configured device for display.
type DeviceStatus struct {
	Name      string
	Type      string
	Attached  bool
	Folders   []string
	AttachErr error
}

// Status probes every configured device and reports whether it is
// attached and what its top folders are.
func (r *Registry) Status() []DeviceStatus {
	statuses := make([]DeviceStatus, 0, len(r.configs))
	for _, cfg := range r.configs {
		status := DeviceStatus{Name: cfg.Name, Type: cfg.Type}

		device, err := NewStoreFromConfig(cfg)
		if err != nil {
			status.AttachErr = err
			statuses = append(statuses, status)
			continue
		}
		folders, err := device.TopFolders()
		if err != nil {
			status.AttachErr = err
			statuses = append(statuses, status)
			continue
		}

		status.Attached = true
		status.Folders = folders
		statuses = append(statuses, status)
	}
	return statuses
}
