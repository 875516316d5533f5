// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package recommend

import (
	"fmt"
	"time"
)

// Config holds the recommendation engine configuration.
type Config struct {
	// Limits controls the default result list lengths.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache controls the TTL response cache.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// Maintenance controls background index rebuilds.
	Maintenance MaintenanceConfig `json:"maintenance" koanf:"maintenance"`
}

// LimitsConfig bounds the length of returned recommendation lists.
type LimitsConfig struct {
	// CoPurchased is the default "frequently bought together" list
	// length. Default: 4.
	CoPurchased int `json:"co_purchased" koanf:"co_purchased"`

	// Similar is the default "similar products" list length.
	// Default: 6.
	Similar int `json:"similar" koanf:"similar"`

	// Cart is the default cart cross-sell list length. Default: 8.
	Cart int `json:"cart" koanf:"cart"`

	// Personalized is the default personalized list length. Default: 8.
	Personalized int `json:"personalized" koanf:"personalized"`

	// Max caps any caller-supplied limit. Default: 50.
	Max int `json:"max" koanf:"max"`
}

// CacheConfig controls the in-memory TTL cache over computed responses.
type CacheConfig struct {
	// Enabled turns the response cache on. Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is how long a cached response stays valid. The cache is also
	// invalidated wholesale on every index rebuild. Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries bounds cache memory. When full, expired entries are
	// evicted first; if none are expired the new entry is not cached.
	// Default: 4096.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// MaintenanceConfig controls the background rebuild service.
type MaintenanceConfig struct {
	// RebuildOnStartup forces a full rebuild from order history when the
	// service starts, even after a successful snapshot restore. When
	// false the startup rebuild runs only if no usable snapshot exists.
	// Default: true.
	RebuildOnStartup bool `json:"rebuild_on_startup" koanf:"rebuild_on_startup"`

	// RebuildInterval is the period between automatic full rebuilds.
	// Zero disables periodic rebuilds. Default: 6h.
	RebuildInterval time.Duration `json:"rebuild_interval" koanf:"rebuild_interval"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Limits: LimitsConfig{
			CoPurchased:  4,
			Similar:      6,
			Cart:         8,
			Personalized: 8,
			Max:          50,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 4096,
		},
		Maintenance: MaintenanceConfig{
			RebuildOnStartup: true,
			RebuildInterval:  6 * time.Hour,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Limits.CoPurchased <= 0 {
		return fmt.Errorf("limits.co_purchased must be positive, got %d", c.Limits.CoPurchased)
	}
	if c.Limits.Similar <= 0 {
		return fmt.Errorf("limits.similar must be positive, got %d", c.Limits.Similar)
	}
	if c.Limits.Cart <= 0 {
		return fmt.Errorf("limits.cart must be positive, got %d", c.Limits.Cart)
	}
	if c.Limits.Personalized <= 0 {
		return fmt.Errorf("limits.personalized must be positive, got %d", c.Limits.Personalized)
	}
	if c.Limits.Max <= 0 {
		return fmt.Errorf("limits.max must be positive, got %d", c.Limits.Max)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %s", c.Cache.TTL)
		}
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache.max_entries must be positive when cache is enabled, got %d", c.Cache.MaxEntries)
		}
	}
	if c.Maintenance.RebuildInterval < 0 {
		return fmt.Errorf("maintenance.rebuild_interval must not be negative, got %s", c.Maintenance.RebuildInterval)
	}
	return nil
}

// ClampLimit applies the configured cap to a caller-supplied limit,
// substituting def when the caller did not specify one.
func (c *Config) ClampLimit(requested, def int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > c.Limits.Max {
		return c.Limits.Max
	}
	return requested
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() Config {
	return *c
}
