package config

import (
	"strings"
	"time"
)

// DevicesConfig configures the upstream device REST backend consumed by the
// dashboard feature glue.
type DevicesConfig struct {
	// BaseURL is the device backend root, e.g. "https://api.example.com/".
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:9090/"`

	// ListCacheTTL bounds how long the device list is served from cache.
	ListCacheTTL time.Duration `env:"DEVICE_LIST_CACHE_TTL" envDefault:"30s"`

	// TrendPointsExpr is the JMESPath expression that extracts the series of
	// {t, v} points from the backend's trend payload. Deployments with
	// different backend shapes override it.
	TrendPointsExpr string `env:"DEVICE_TREND_POINTS_EXPR" envDefault:"points[*].{t: ts, v: value}"`
}

// Sanitize normalises values loaded from env.
func (c *DevicesConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.ListCacheTTL <= 0 {
		c.ListCacheTTL = 30 * time.Second
	}
	c.TrendPointsExpr = strings.TrimSpace(c.TrendPointsExpr)
}
