// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

// Package config provides centralized configuration for all ShopRec
// components, loaded with Koanf v2 from layered sources:
//
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config File: optional YAML config file for persistent settings
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/shoprec/internal/recommend"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  DatabaseConfig   `koanf:"database"`
	Events    EventsConfig     `koanf:"events"` // Order-completed event intake (Watermill)
	API       APIConfig        `koanf:"api"`
	Recommend recommend.Config `koanf:"recommend"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8480)
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings for the catalog and order store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // DuckDB database file; empty for in-memory
	MaxMemory string `koanf:"max_memory"` // DuckDB memory_limit pragma, e.g. "2GB"
	Threads   int    `koanf:"threads"`    // 0 = use runtime.NumCPU()

	// SnapshotPath is the Badger directory for persisted index
	// snapshots. Empty disables persistence.
	SnapshotPath string `koanf:"snapshot_path"`
}

// EventsConfig controls how completed-order events reach the index.
// The in-process transport needs no broker and is the default; the nats
// transport consumes from a JetStream stream shared with the storefront.
type EventsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Transport string `koanf:"transport"` // "inproc" or "nats"
	Topic     string `koanf:"topic"`

	// NATS settings, used only when Transport is "nats".
	URL           string        `koanf:"url"`
	StreamName    string        `koanf:"stream_name"`
	DurableName   string        `koanf:"durable_name"`
	QueueGroup    string        `koanf:"queue_group"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxReconnects int           `koanf:"max_reconnects"`

	// Router middleware settings (Watermill).
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// APIConfig holds HTTP API behavior settings.
//
// Environment Variables:
//   - API_RATE_LIMIT_REQUESTS: Requests per window per client IP (default: 300)
//   - API_RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
type APIConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be >= 0, got %d", c.Database.Threads)
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	switch c.Events.Transport {
	case "inproc":
	case "nats":
		if c.Events.URL == "" {
			return fmt.Errorf("events.url is required for the nats transport")
		}
	default:
		return fmt.Errorf("events.transport must be inproc or nats, got %q", c.Events.Transport)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("events.topic must not be empty")
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("events.retry_count must be >= 0, got %d", c.Events.RetryCount)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitReqs <= 0 {
			return fmt.Errorf("api.rate_limit_requests must be positive, got %d", c.API.RateLimitReqs)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("api.rate_limit_window must be positive, got %s", c.API.RateLimitWindow)
		}
	}
	if c.API.MaxBodyBytes <= 0 {
		return fmt.Errorf("api.max_body_bytes must be positive, got %d", c.API.MaxBodyBytes)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
