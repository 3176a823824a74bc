package simpleoss

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultDisk is the disk name used when none is given.
const DefaultDisk = "oss"

// Registry holds named filesystem adapters. Consumers receive a Registry (or
// an Adapter resolved from it) at construction instead of looking one up
// from global state.
type Registry struct {
	mu          sync.RWMutex
	disks       map[string]FilesystemAdapter
	defaultDisk string
}

// NewRegistry creates an empty registry. An empty defaultDisk means DefaultDisk.
func NewRegistry(defaultDisk string) *Registry {
	if defaultDisk == "" {
		defaultDisk = DefaultDisk
	}
	return &Registry{
		disks:       make(map[string]FilesystemAdapter),
		defaultDisk: defaultDisk,
	}
}

// Register adds or replaces a disk.
func (r *Registry) Register(name string, disk FilesystemAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disks[name] = disk
}

// DefaultName returns the name of the default disk.
func (r *Registry) DefaultName() string {
	return r.defaultDisk
}

// Names returns the registered disk names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.disks))
	for name := range r.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disk returns the disk registered under name, the default disk for "".
func (r *Registry) Disk(name string) (FilesystemAdapter, error) {
	if name == "" {
		name = r.defaultDisk
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	disk, ok := r.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDiskNotFound, name)
	}
	return disk, nil
}

// Client returns the OSS Adapter registered under name.
func (r *Registry) Client(name string) (*Adapter, error) {
	disk, err := r.Disk(name)
	if err != nil {
		return nil, err
	}
	a, ok := disk.(*Adapter)
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDisk, name)
	}
	return a, nil
}
