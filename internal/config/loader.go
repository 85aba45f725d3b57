package config

import (
	"context"
)

// Loader abstracts where worker configuration comes from. Binaries read a
// yaml file in development and the environment in deployments through the
// same interface.
type Loader interface {
	// Load reads and parses the configuration from the underlying source.
	// It returns the parsed configuration or an error when the source is
	// unreadable or malformed.
	Load(ctx context.Context) (*Config, error)
}
