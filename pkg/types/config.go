// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds configuration types shared between the CLI and the
// internal packages.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the transport default in place.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "docman/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LookupConfig holds settings for the remote lookup service that resolves
// book and webpage citations.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the scheme and host of the lookup service, e.g.
	// "http://localhost:8080". Resource paths are appended to it.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries on HTTP 429. Zero disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// RateLimit caps lookups per second. Zero means unlimited.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// OutputConfig controls how the report reaches its destination.
type OutputConfig struct {
	// Atomic buffers the whole report and writes it only when every stage
	// succeeded. When false the document is streamed as it is scanned.
	Atomic bool `json:"atomic" yaml:"atomic" mapstructure:"atomic"`
}

// Config groups all docman settings.
type Config struct {
	Lookup LookupConfig `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	Output OutputConfig `json:"output" yaml:"output" mapstructure:"output"`
}

// DefaultBaseURL is the lookup service used when none is configured.
const DefaultBaseURL = "http://localhost:8080"

// DefaultConfig returns a Config with the lookup service at DefaultBaseURL,
// no timeout override, no retries and no rate limit.
func DefaultConfig() Config {
	return Config{
		Lookup: LookupConfig{
			BaseURL: DefaultBaseURL,
		},
	}
}

// Validate checks the struct tags on c and reports every failing field.
func (c Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
