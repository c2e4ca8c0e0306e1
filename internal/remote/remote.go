// Package remote binds the media server SDK to the authentication state.
//
// A Remote keeps one API handle in sync with the selected server and access
// token, and points the shared HTTP client at the selected server. It is
// built once at startup and passed to whatever needs to talk to the server.
package remote

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/auth"
	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
	"github.com/sirosfoundation/go-media-remote/internal/reactive"
	"github.com/sirosfoundation/go-media-remote/internal/sdk"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

// Deps are the collaborators of a Remote
type Deps struct {
	Auth   *auth.State
	HTTP   *httpclient.Adapter
	SDK    *sdk.SDK
	System *reactive.System
	Logger *zap.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return errors.New("remote: auth state is required")
	case d.HTTP == nil:
		return errors.New("remote: http adapter is required")
	case d.SDK == nil:
		return errors.New("remote: sdk is required")
	case d.System == nil:
		return errors.New("remote: reactive system is required")
	}
	return nil
}

// Remote holds the API handle of the current session
type Remote struct {
	auth   *auth.State
	http   *httpclient.Adapter
	sdk    *sdk.SDK
	scope  *reactive.Scope
	logger *zap.Logger

	api *reactive.Ref[*sdk.API]
}

// New creates a Remote and binds it to the authentication state. The
// binding runs once before New returns; an error from that first run is
// returned. Later errors go to the System error handler.
func New(deps Deps) (*Remote, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := &Remote{
		auth:   deps.Auth,
		http:   deps.HTTP,
		sdk:    deps.SDK,
		scope:  deps.System.NewScope(),
		logger: logging.Named(deps.Logger, "remote"),
		api:    reactive.NewRef[*sdk.API](nil),
	}

	if err := r.scope.Effect(r.sync, deps.Auth.ServerRef(), deps.Auth.TokenRef()); err != nil {
		r.scope.Stop()
		return nil, err
	}
	return r, nil
}

// sync reconciles the handle and the shared client with the auth state
func (r *Remote) sync() error {
	return r.onAuthChange(r.auth.CurrentServer(), r.auth.CurrentUserToken())
}

func (r *Remote) onAuthChange(server *auth.ServerDescriptor, token string) error {
	if server == nil {
		r.http.ResetDefaults()
		r.api.Set(nil)
		r.logger.Debug("api cleared")
		return nil
	}

	client := r.http.Instance()
	api, err := r.sdk.CreateAPI(server.PublicAddress, token, client)
	if err != nil {
		return fmt.Errorf("failed to create api for %s: %w", server.PublicAddress, err)
	}
	client.SetBaseURL(server.PublicAddress)
	r.api.Set(api)

	r.logger.Debug("api bound",
		zap.String("server", server.PublicAddress),
		zap.Bool("authenticated", token != ""))
	return nil
}

// API returns the current handle, or nil when no server is selected
func (r *Remote) API() *sdk.API {
	return r.api.Get()
}

// APIRef exposes the current handle for observers. Handles are replaced on
// every change, never mutated.
func (r *Remote) APIRef() reactive.Readable[*sdk.API] {
	return r.api
}

// ClientInfo returns the client identification of the SDK
func (r *Remote) ClientInfo() sdk.ClientInfo {
	return r.sdk.ClientInfo()
}

// DeviceInfo returns the device identification of the SDK
func (r *Remote) DeviceInfo() sdk.DeviceInfo {
	return r.sdk.DeviceInfo()
}

// Discovery returns the server discovery helper of the SDK
func (r *Remote) Discovery() *sdk.Discovery {
	return r.sdk.Discovery()
}

// OneTimeSetup returns a handle for a server other than the selected one,
// on a private HTTP client.
func (r *Remote) OneTimeSetup(address, token string) (*sdk.API, error) {
	return r.sdk.OneTimeAPI(address, token)
}

// Scope returns the scope of the binding. Pausing it suspends the binding.
func (r *Remote) Scope() *reactive.Scope {
	return r.scope
}

// Close stops following the authentication state
func (r *Remote) Close() {
	r.scope.Stop()
}

// NewUserAPI calls fn with the current handle.
//
// Use only where a user is signed in: the handle is passed as is, and is
// nil when no server is selected.
func NewUserAPI[T any](r *Remote, fn func(api *sdk.API) T) T {
	return fn(r.api.Get())
}
