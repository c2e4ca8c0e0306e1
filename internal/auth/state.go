// Package auth holds the client's authentication state: the media server
// currently selected and the access token of the signed-in user. Both are
// observable so API bindings can follow them.
package auth

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/reactive"
	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

// ServerDescriptor describes a media server known to the client
type ServerDescriptor struct {
	ID                     string `json:"Id"`
	Name                   string `json:"ServerName"`
	PublicAddress          string `json:"PublicAddress"`
	Version                string `json:"Version"`
	StartupWizardCompleted bool   `json:"StartupWizardCompleted"`
}

// State is the authentication state. A nil current server means no server
// is selected; an empty token means the session is unauthenticated, which is
// allowed while a server is selected.
type State struct {
	sys    *reactive.System
	logger *zap.Logger

	server *reactive.Ref[*ServerDescriptor]
	token  *reactive.Ref[string]

	mu      sync.RWMutex
	servers []ServerDescriptor
}

// NewState creates an empty state whose writes are batched through sys
func NewState(sys *reactive.System, logger *zap.Logger) *State {
	return &State{
		sys:    sys,
		logger: logging.Named(logger, "auth"),
		server: reactive.NewRef[*ServerDescriptor](nil),
		token:  reactive.NewRef(""),
	}
}

// CurrentServer returns the selected server, or nil
func (s *State) CurrentServer() *ServerDescriptor {
	return s.server.Get()
}

// CurrentUserToken returns the access token, or "" when unauthenticated
func (s *State) CurrentUserToken() string {
	return s.token.Get()
}

// ServerRef exposes the selected server for observers
func (s *State) ServerRef() reactive.Readable[*ServerDescriptor] {
	return s.server
}

// TokenRef exposes the access token for observers
func (s *State) TokenRef() reactive.Readable[string] {
	return s.token
}

// SetCurrentServer selects server. The descriptor is copied; a nil server
// clears the selection.
func (s *State) SetCurrentServer(server *ServerDescriptor) {
	s.server.Set(clone(server))
}

// SetCurrentUserToken stores the access token of the signed-in user
func (s *State) SetCurrentUserToken(token string) {
	s.token.Set(token)
}

// Connect selects server and token in a single change
func (s *State) Connect(server *ServerDescriptor, token string) {
	s.sys.Batch(func() {
		s.SetCurrentServer(server)
		s.SetCurrentUserToken(token)
	})
	if server != nil {
		s.AddServer(*server)
		s.logger.Info("connected", zap.String("server", server.PublicAddress), zap.Bool("authenticated", token != ""))
	}
}

// Logout drops the access token and keeps the selected server
func (s *State) Logout() {
	s.SetCurrentUserToken("")
	s.logger.Info("logged out")
}

// Disconnect clears both the server and the token in a single change
func (s *State) Disconnect() {
	s.sys.Batch(func() {
		s.SetCurrentServer(nil)
		s.SetCurrentUserToken("")
	})
	s.logger.Info("disconnected")
}

// AddServer records a known server, replacing an entry with the same ID or
// public address.
func (s *State) AddServer(server ServerDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.servers {
		if sameServer(existing, server) {
			s.servers[i] = server
			return
		}
	}
	s.servers = append(s.servers, server)
}

// RemoveServer forgets a known server. Removing the selected server
// disconnects.
func (s *State) RemoveServer(server ServerDescriptor) {
	s.mu.Lock()
	for i, existing := range s.servers {
		if sameServer(existing, server) {
			s.servers = append(s.servers[:i:i], s.servers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if current := s.CurrentServer(); current != nil && sameServer(*current, server) {
		s.Disconnect()
	}
}

// Servers returns the known servers
func (s *State) Servers() []ServerDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServerDescriptor, len(s.servers))
	copy(out, s.servers)
	return out
}

func sameServer(a, b ServerDescriptor) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.PublicAddress == b.PublicAddress
}

func clone(server *ServerDescriptor) *ServerDescriptor {
	if server == nil {
		return nil
	}
	c := *server
	return &c
}
