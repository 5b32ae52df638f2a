// Package cache tracks validity flags for named cache regions. It never
// stores payloads; a region only gates whether the mirror may be trusted
// without re-fetching.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	RegionProducts  = "products"
	RegionInventory = "inventory"
	RegionAll       = "all"
)

// RegionProduct names the per-product region for id.
func RegionProduct(id string) string { return "product:" + id }

type RegionInfo struct {
	Region          string `json:"region"`
	Valid           bool   `json:"valid"`
	InvalidatedAt   string `json:"invalidatedAt,omitempty"` // RFC3339
	Invalidations   int    `json:"invalidations"`
	LastMarkedValid string `json:"lastMarkedValid,omitempty"`
}

// Manager is constructed once per process and shared; every caller sees the
// same region state.
type Manager struct {
	mu      sync.RWMutex
	regions map[string]*RegionInfo
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewManager(logger *zap.SugaredLogger) *Manager {
	m := &Manager{
		regions: make(map[string]*RegionInfo),
		logger:  logger,
		now:     time.Now,
	}
	// Known regions start valid; per-product regions appear on first use.
	for _, r := range []string{RegionProducts, RegionInventory, RegionAll} {
		m.regions[r] = &RegionInfo{Region: r, Valid: true}
	}
	return m
}

func (m *Manager) InvalidateProducts()         { m.invalidate(RegionProducts) }
func (m *Manager) InvalidateInventory()        { m.invalidate(RegionInventory) }
func (m *Manager) InvalidateProduct(id string) { m.invalidate(RegionProduct(id)) }

// InvalidateAll flags the catch-all region and every known region.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.regions {
		m.invalidateLocked(name)
	}
	m.invalidateLocked(RegionAll)
}

func (m *Manager) invalidate(region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked(region)
}

func (m *Manager) invalidateLocked(region string) {
	r, ok := m.regions[region]
	if !ok {
		r = &RegionInfo{Region: region, Valid: true}
		m.regions[region] = r
	}
	// Idempotent: re-invalidating an invalid region changes nothing.
	if !r.Valid {
		return
	}
	r.Valid = false
	r.InvalidatedAt = m.now().UTC().Format(time.RFC3339)
	r.Invalidations++
	m.logger.Infow("cache region invalidated", "region", region)
}

// MarkValid restores a region after the data behind it has been refreshed.
func (m *Manager) MarkValid(region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[region]
	if !ok {
		r = &RegionInfo{Region: region}
		m.regions[region] = r
	}
	r.Valid = true
	r.LastMarkedValid = m.now().UTC().Format(time.RFC3339)
}

func (m *Manager) IsValid(region string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.regions[region]; ok {
		return r.Valid
	}
	// Unknown region has never been invalidated.
	return true
}

// Info returns a snapshot of every known region for diagnostics.
func (m *Manager) Info() map[string]RegionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]RegionInfo, len(m.regions))
	for name, r := range m.regions {
		out[name] = *r
	}
	return out
}
