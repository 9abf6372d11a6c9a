// Package roblox implements remote.Source against the Roblox Open Cloud
// game pass and developer product APIs.
package roblox

import (
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Config holds the client settings read from the environment.
type Config struct {
	APIKey              string        `env:"RBX_API_KEY"`
	BaseURL             string        `env:"RBX_API_BASE_URL"           envDefault:"https://apis.roblox.com"`
	Timeout             time.Duration `env:"RBX_HTTP_TIMEOUT"           envDefault:"30s"`
	MaxRateLimitRetries int           `env:"RBX_MAX_RATE_LIMIT_RETRIES" envDefault:"5"`
	PageSize            int           `env:"RBX_PAGE_SIZE"              envDefault:"100"`
	UserAgent           string        `env:"RBX_USER_AGENT"`
}

// LoadConfig parses Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.NewConfigError("roblox", "invalid environment", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the numeric settings. A missing key is reported when the
// client is built, not here, so commands that never call the API still work.
func (c Config) Validate() error {
	switch {
	case c.PageSize < 1 || c.PageSize > constants.DefaultPageSize:
		return &errors.ValidationError{Field: "RBX_PAGE_SIZE", Value: c.PageSize, Message: "must be between 1 and 100"}
	case c.MaxRateLimitRetries < 0:
		return &errors.ValidationError{Field: "RBX_MAX_RATE_LIMIT_RETRIES", Value: c.MaxRateLimitRetries, Message: "cannot be negative"}
	case c.Timeout < 0:
		return &errors.ValidationError{Field: "RBX_HTTP_TIMEOUT", Value: c.Timeout, Message: "cannot be negative"}
	case strings.TrimSpace(c.BaseURL) == "":
		return &errors.ValidationError{Field: "RBX_API_BASE_URL", Message: "cannot be empty"}
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return errors.WrapValidation("RBX_API_BASE_URL", err)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultAPIBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageSize == 0 {
		c.PageSize = constants.DefaultPageSize
	}
	if c.Timeout == 0 {
		c.Timeout = constants.DefaultHTTPTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = "rbxproducts"
	}
	return c
}
