// Package port provides the typed single-slot data channels connecting the trajectory
// generator, the controller, and their external collaborators. A port keeps only the
// most recent sample and reports on each read whether that sample is new, already seen,
// or has never been written.
package port

import "sync"

// FlowStatus describes the freshness of a sample returned by Read.
type FlowStatus int

const (
	// NoData means the port has never been written.
	NoData FlowStatus = iota
	// OldData means the sample was already returned by an earlier Read.
	OldData
	// NewData means the sample was written since the last Read.
	NewData
)

// Data is a single-slot port carrying values of type T. Writes overwrite the slot;
// reads never block.
type Data[T any] struct {
	mu      sync.Mutex
	name    string
	value   T
	written bool
	fresh   bool
}

// New returns an empty port with the given name.
func New[T any](name string) *Data[T] {
	return &Data[T]{name: name}
}

// Name returns the port name, used in diagnostics.
func (d *Data[T]) Name() string {
	return d.name
}

// Write stores a new sample, replacing any previous one.
func (d *Data[T]) Write(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = value
	d.written = true
	d.fresh = true
}

// Read returns the most recent sample and its freshness. A sample is returned as
// NewData exactly once; later reads return it as OldData until the next Write.
func (d *Data[T]) Read() (T, FlowStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.written {
		var zero T
		return zero, NoData
	}
	if d.fresh {
		d.fresh = false
		return d.value, NewData
	}
	return d.value, OldData
}
