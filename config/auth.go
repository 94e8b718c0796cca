package config

import (
	"strings"
	"time"
)

// EnterpriseConfig configures the redirect-based enterprise identity
// provider. Required settings are validated by the adapter at construction;
// a missing setting disables only that adapter.
type EnterpriseConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Authority    string `env:"AUTHORITY"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// ConsumerConfig configures the one-tap consumer identity provider.
type ConsumerConfig struct {
	ClientID string `env:"CLIENT_ID"`

	// PromptTimeout bounds the wait for the credential prompt.
	PromptTimeout time.Duration `env:"PROMPT_TIMEOUT" envDefault:"7s"`
}

// DirectoryConfig configures the local username/password user directory.
type DirectoryConfig struct {
	BaseURL  string `env:"BASE_URL"`
	PoolID   string `env:"POOL_ID"`
	ClientID string `env:"CLIENT_ID"`
}

// AuthConfig groups all identity provider configuration.
type AuthConfig struct {
	Enterprise EnterpriseConfig `envPrefix:"ENTERPRISE_"`
	Consumer   ConsumerConfig   `envPrefix:"CONSUMER_"`
	Directory  DirectoryConfig  `envPrefix:"DIRECTORY_"`
}

// Sanitize normalises values loaded from env.
func (c *AuthConfig) Sanitize() {
	c.Enterprise.Authority = strings.TrimSuffix(strings.TrimSpace(c.Enterprise.Authority), "/")
	c.Directory.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Directory.BaseURL), "/")
	if c.Consumer.PromptTimeout <= 0 {
		c.Consumer.PromptTimeout = 7 * time.Second
	}
}
