// Package sdk is the media server SDK: it describes the client and device to
// the server, discovers servers from user input and creates API handles bound
// to a server address, an access token and an HTTP client.
package sdk

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
	"github.com/sirosfoundation/go-media-remote/pkg/config"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

var (
	ErrInvalidAddress   = errors.New("invalid server address")
	ErrNilHTTPClient    = errors.New("http client is required")
	ErrNotAuthenticated = errors.New("no access token")
)

// ClientInfo identifies the application
type ClientInfo struct {
	Name    string
	Version string
}

// DeviceInfo identifies the device
type DeviceInfo struct {
	Name string
	ID   string
}

// Option configures an SDK
type Option func(*SDK)

// WithDiscoveryTimeout bounds each discovery probe
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(s *SDK) {
		s.discoveryTimeout = d
	}
}

// WithHTTPDefaults sets the defaults of the private clients created by OneTimeAPI
func WithHTTPDefaults(d httpclient.Defaults) Option {
	return func(s *SDK) {
		s.httpDefaults = d
	}
}

// SDK creates API handles. It holds no per-server state.
type SDK struct {
	clientInfo ClientInfo
	deviceInfo DeviceInfo
	discovery  *Discovery
	logger     *zap.Logger

	discoveryTimeout time.Duration
	httpDefaults     httpclient.Defaults
}

// New creates an SDK. An empty device ID is replaced by a random UUID.
func New(clientInfo ClientInfo, deviceInfo DeviceInfo, logger *zap.Logger, opts ...Option) *SDK {
	if deviceInfo.ID == "" {
		deviceInfo.ID = uuid.New().String()
	}

	s := &SDK{
		clientInfo:       clientInfo,
		deviceInfo:       deviceInfo,
		logger:           logging.Named(logger, "sdk"),
		discoveryTimeout: 5 * time.Second,
		httpDefaults:     httpclient.Defaults{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.discovery = newDiscovery(s, s.discoveryTimeout)
	return s
}

// FromConfig creates an SDK from the client configuration
func FromConfig(cfg *config.Config, logger *zap.Logger) *SDK {
	return New(
		ClientInfo{Name: cfg.Client.Name, Version: cfg.Client.Version},
		DeviceInfo{Name: cfg.Device.Name, ID: cfg.Device.ID},
		logger,
		WithDiscoveryTimeout(cfg.Discovery.Timeout),
		WithHTTPDefaults(httpclient.DefaultsFromConfig(cfg.HTTP)),
	)
}

// ClientInfo returns the client identification
func (s *SDK) ClientInfo() ClientInfo {
	return s.clientInfo
}

// DeviceInfo returns the device identification
func (s *SDK) DeviceInfo() DeviceInfo {
	return s.deviceInfo
}

// Discovery returns the server discovery helper
func (s *SDK) Discovery() *Discovery {
	return s.discovery
}

// CreateAPI returns a handle for the server at address. The token may be
// empty for an unauthenticated session. Requests are sent through hc.
func (s *SDK) CreateAPI(address, token string, hc *httpclient.Client) (*API, error) {
	if hc == nil {
		return nil, ErrNilHTTPClient
	}

	basePath, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	return &API{
		basePath:    basePath,
		accessToken: token,
		client:      hc,
		clientInfo:  s.clientInfo,
		deviceInfo:  s.deviceInfo,
	}, nil
}

// OneTimeAPI returns a handle on a private HTTP client, for requests to a
// server other than the selected one. The shared client is never touched.
func (s *SDK) OneTimeAPI(address, token string) (*API, error) {
	return s.CreateAPI(address, token, httpclient.NewClient(s.httpDefaults, s.logger))
}

// NormalizeAddress validates an absolute http(s) server address and strips
// trailing slashes.
func NormalizeAddress(address string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidAddress, address)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidAddress, address)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
