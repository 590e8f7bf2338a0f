// Package lifecycle provides the module's process-level service manager:
// a flat list of named services each started and stopped in registration
// order. It is the module's only dependency-injection mechanism, hand-rolled
// rather than a framework such as fx.
package lifecycle

import "context"

// Service is anything with a name and a start/stop lifecycle.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts and stops a fixed set of services in registration order,
// stopping in reverse order on shutdown.
type Manager struct {
	services []Service
}

// New returns an empty Manager.
func New() *Manager { return &Manager{} }

// Add registers a service. Services are started in the order they are
// added and stopped in reverse order.
func (m *Manager) Add(s Service) { m.services = append(m.services, s) }

// StartAll starts every registered service in order. It stops as soon as one
// fails, returning that error; services already started are left running —
// callers are expected to call StopAll regardless of the error.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, s := range m.services {
		if err := s.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every registered service in reverse order, collecting the
// first error encountered but attempting to stop the rest regardless.
func (m *Manager) StopAll(ctx context.Context) error {
	var first error
	for i := len(m.services) - 1; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
