package remote

import (
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/auth"
	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
	"github.com/sirosfoundation/go-media-remote/internal/reactive"
	"github.com/sirosfoundation/go-media-remote/internal/sdk"
	"github.com/sirosfoundation/go-media-remote/internal/websocket"
	"github.com/sirosfoundation/go-media-remote/pkg/config"
)

// Client bundles the collaborators of a media server session. It is built
// once at startup and passed explicitly to whatever needs it.
type Client struct {
	System *reactive.System
	Auth   *auth.State
	HTTP   *httpclient.Adapter
	SDK    *sdk.SDK
	Remote *Remote
	Logger *zap.Logger
	// Socket follows Remote's API handle once started
	Socket *websocket.Manager
}

// Setup builds a Client from the configuration
func Setup(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sys := reactive.NewSystem(reactive.WithLogger(logger.Named("reactive")))
	c := &Client{
		System: sys,
		Auth:   auth.NewState(sys, logger),
		HTTP:   httpclient.New(cfg.HTTP, logger),
		SDK:    sdk.FromConfig(cfg, logger),
		Logger: logger,
	}

	r, err := New(Deps{
		Auth:   c.Auth,
		HTTP:   c.HTTP,
		SDK:    c.SDK,
		System: sys,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	c.Remote = r
	c.Socket = websocket.NewManager(sys, r.APIRef(), logger)

	return c, nil
}

// Close releases the socket and the API binding
func (c *Client) Close() {
	c.Socket.Close()
	c.Remote.Close()
	_ = c.Logger.Sync()
}

// DescriptorFromInfo builds a server descriptor for address from the
// server's public information.
func DescriptorFromInfo(address string, info *sdk.PublicSystemInfo) *auth.ServerDescriptor {
	d := &auth.ServerDescriptor{PublicAddress: address}
	if info != nil {
		d.ID = info.ID
		d.Name = info.ServerName
		d.Version = info.Version
		d.StartupWizardCompleted = info.StartupWizardCompleted
	}
	return d
}
