package httpclient

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/pkg/config"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

// Adapter owns the shared Client and the defaults it is reset to
type Adapter struct {
	initial Defaults
	client  *Client
	logger  *zap.Logger
}

// DefaultsFromConfig converts the HTTP configuration into client defaults.
// The base address is always unset.
func DefaultsFromConfig(cfg config.HTTPConfig) Defaults {
	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	return Defaults{
		Header:  header,
		Timeout: cfg.Timeout,
	}
}

// New creates an adapter whose shared client starts from the configured defaults
func New(cfg config.HTTPConfig, logger *zap.Logger) *Adapter {
	initial := DefaultsFromConfig(cfg)

	logger = logging.Named(logger, "http-adapter")
	return &Adapter{
		initial: initial,
		client:  NewClient(initial, logger),
		logger:  logger,
	}
}

// Instance returns the shared client. Its identity never changes.
func (a *Adapter) Instance() *Client {
	return a.client
}

// InitialDefaults returns a copy of the defaults restored by ResetDefaults
func (a *Adapter) InitialDefaults() Defaults {
	return a.initial.clone()
}

// ResetDefaults restores the configured defaults, clearing the base address
// and any header set since.
func (a *Adapter) ResetDefaults() {
	a.client.setDefaults(a.initial)
	a.logger.Debug("defaults reset")
}
