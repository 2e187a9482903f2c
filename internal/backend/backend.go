// Package backend selects the gateway implementation the view-models talk
// through: the real REST services or the seeded in-memory stand-in.
package backend

import (
	"fmt"
	"time"

	"laundryadmin/internal/gateway"
	"laundryadmin/internal/gateway/memory"
	"laundryadmin/internal/gateway/rest"
	"laundryadmin/internal/log"
)

// Type represents the kind of gateway backing the view-models.
type Type string

const (
	RESTBackend   Type = "rest"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case RESTBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for gateway creation
type Config struct {
	Type     Type
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// CreateGateway builds a gateway for the configured backend type.
func CreateGateway(cfg Config, logger *log.Logger) (gateway.Gateway, error) {
	switch cfg.Type {
	case RESTBackend:
		opts := []rest.Option{}
		if cfg.APIToken != "" {
			opts = append(opts, rest.WithAPIToken(cfg.APIToken))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, rest.WithTimeout(cfg.Timeout))
		}
		return rest.New(cfg.BaseURL, logger, opts...), nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}
