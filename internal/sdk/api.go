package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
)

// PublicSystemInfo is returned by /System/Info/Public
type PublicSystemInfo struct {
	LocalAddress           string `json:"LocalAddress"`
	ServerName             string `json:"ServerName"`
	Version                string `json:"Version"`
	ProductName            string `json:"ProductName"`
	OperatingSystem        string `json:"OperatingSystem,omitempty"`
	ID                     string `json:"Id"`
	StartupWizardCompleted bool   `json:"StartupWizardCompleted"`
}

// User is a media server user
type User struct {
	ID            string     `json:"Id"`
	Name          string     `json:"Name"`
	ServerID      string     `json:"ServerId"`
	HasPassword   bool       `json:"HasPassword"`
	LastLoginDate *time.Time `json:"LastLoginDate,omitempty"`
}

// AuthenticationResult is returned by a successful sign in
type AuthenticationResult struct {
	User        *User  `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// API is a handle bound to a server address, an optional access token and
// an HTTP client. Handles are immutable; a new session gets a new handle.
type API struct {
	basePath    string
	accessToken string
	client      *httpclient.Client
	clientInfo  ClientInfo
	deviceInfo  DeviceInfo
}

// BasePath returns the server address the handle is bound to
func (a *API) BasePath() string {
	return a.basePath
}

// AccessToken returns the token, or "" for an unauthenticated handle
func (a *API) AccessToken() string {
	return a.accessToken
}

// HTTPClient returns the client requests are sent through
func (a *API) HTTPClient() *httpclient.Client {
	return a.client
}

// DeviceInfo returns the device the handle identifies as
func (a *API) DeviceInfo() DeviceInfo {
	return a.deviceInfo
}

// AuthorizationHeader returns the MediaBrowser authorization header value
func (a *API) AuthorizationHeader() string {
	return AuthorizationHeader(a.clientInfo, a.deviceInfo, a.accessToken)
}

// WithAccessToken returns a copy of the handle carrying token
func (a *API) WithAccessToken(token string) *API {
	c := *a
	c.accessToken = token
	return &c
}

// Do sends req to the bound server with the authorization header set
func (a *API) Do(ctx context.Context, req httpclient.Request, out any) error {
	if req.Header == nil {
		req.Header = http.Header{}
	} else {
		req.Header = req.Header.Clone()
	}
	req.Header.Set("Authorization", a.AuthorizationHeader())
	req.Path = a.basePath + "/" + strings.TrimPrefix(req.Path, "/")
	return a.client.Do(ctx, req, out)
}

// GetPublicSystemInfo fetches the unauthenticated server information
func (a *API) GetPublicSystemInfo(ctx context.Context) (*PublicSystemInfo, error) {
	var info PublicSystemInfo
	if err := a.Do(ctx, httpclient.Request{Path: "/System/Info/Public"}, &info); err != nil {
		return nil, fmt.Errorf("failed to get public system info: %w", err)
	}
	return &info, nil
}

// GetCurrentUser fetches the user the access token belongs to
func (a *API) GetCurrentUser(ctx context.Context) (*User, error) {
	if a.accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	var user User
	if err := a.Do(ctx, httpclient.Request{Path: "/Users/Me"}, &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

// AuthenticateUserByName signs in with a user name and password
func (a *API) AuthenticateUserByName(ctx context.Context, username, password string) (*AuthenticationResult, error) {
	var result AuthenticationResult
	err := a.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/Users/AuthenticateByName",
		Body: map[string]string{
			"Username": username,
			"Pw":       password,
		},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return &result, nil
}

// Logout ends the server session of the access token
func (a *API) Logout(ctx context.Context) error {
	if a.accessToken == "" {
		return ErrNotAuthenticated
	}
	if err := a.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/Sessions/Logout"}, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// SocketURL returns the websocket endpoint of the session
func (a *API) SocketURL() (string, error) {
	if a.accessToken == "" {
		return "", ErrNotAuthenticated
	}

	u, err := url.Parse(a.basePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket"
	u.RawQuery = url.Values{
		"api_key":  {a.accessToken},
		"deviceId": {a.deviceInfo.ID},
	}.Encode()
	return u.String(), nil
}
