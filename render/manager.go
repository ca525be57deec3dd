package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"
)

// Manager picks a rasterizer from the ones available on this system, falling
// back to the next one when a rasterizer fails
type Manager struct {
	rasterizers []Rasterizer
	preferred   string
	mu          sync.RWMutex
}

// DefaultRasterizers returns every known rasterizer in priority order
func DefaultRasterizers() []Rasterizer {
	return []Rasterizer{
		NewRSVG(),
		NewInkscape(),
		NewPlaywright(),
		NewOKSVG(),
	}
}

// NewManager registers the available rasterizers out of candidates, in
// order. With no candidates the defaults are detected.
func NewManager(candidates ...Rasterizer) *Manager {
	if len(candidates) == 0 {
		candidates = DefaultRasterizers()
	}
	m := &Manager{}
	for _, r := range candidates {
		if r.IsAvailable() {
			m.rasterizers = append(m.rasterizers, r)
		}
	}
	return m
}

// SetPreferred sets the preferred rasterizer by name
func (m *Manager) SetPreferred(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" || name == "auto" {
		m.preferred = ""
		return nil
	}
	if _, ok := m.find(name); !ok {
		return fmt.Errorf("rasterizer '%s' not available (available: %v)", name, m.names())
	}
	m.preferred = name
	return nil
}

// Preferred returns the preferred rasterizer name
func (m *Manager) Preferred() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferred
}

// Available returns the names of the registered rasterizers
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names()
}

func (m *Manager) names() []string {
	return lo.Map(m.rasterizers, func(r Rasterizer, _ int) string { return r.Name() })
}

func (m *Manager) find(name string) (Rasterizer, bool) {
	return lo.Find(m.rasterizers, func(r Rasterizer) bool { return r.Name() == name })
}

// Get returns a rasterizer by name
func (m *Manager) Get(name string) (Rasterizer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.find(name); ok {
		return r, nil
	}
	return nil, fmt.Errorf("rasterizer '%s' not found", name)
}

// Best returns the preferred rasterizer, or the first available one
func (m *Manager) Best() (Rasterizer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.best()
}

func (m *Manager) best() (Rasterizer, error) {
	if len(m.rasterizers) == 0 {
		return nil, errors.New("no SVG rasterizers available")
	}
	if r, ok := m.find(m.preferred); ok {
		return r, nil
	}
	return m.rasterizers[0], nil
}

// Name implements Rasterizer
func (m *Manager) Name() string {
	r, err := m.Best()
	if err != nil {
		return "none"
	}
	return r.Name()
}

// IsAvailable implements Rasterizer
func (m *Manager) IsAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rasterizers) > 0
}

// Rasterize uses the best rasterizer. A rasterizer that fails is dropped and
// the next one is tried.
func (m *Manager) Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error) {
	var lastErr error
	for {
		r, err := m.Best()
		if err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("all rasterizers failed, last error: %w", lastErr)
			}
			return nil, err
		}

		data, err := r.Rasterize(ctx, svg, opts)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		m.drop(r, err)
	}
}

// drop removes a failed rasterizer and closes it
func (m *Manager) drop(r Rasterizer, cause error) {
	if !m.remove(r) {
		return
	}
	logger.Warnf("Rasterizer %s failed, falling back: %v", r.Name(), cause)
	if closer, ok := r.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Debugf("failed to close %s: %v", r.Name(), err)
		}
	}
}

func (m *Manager) remove(r Rasterizer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.rasterizers)
	m.rasterizers = lo.Filter(m.rasterizers, func(c Rasterizer, _ int) bool { return c != r })
	if len(m.rasterizers) == before {
		return false
	}
	if m.preferred == r.Name() {
		m.preferred = ""
	}
	return true
}

// Close closes any rasterizers that need cleanup (like Playwright)
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, r := range m.rasterizers {
		if closer, ok := r.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
