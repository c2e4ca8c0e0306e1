package remote

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/internal/auth"
	"github.com/sirosfoundation/go-media-remote/internal/httpclient"
	"github.com/sirosfoundation/go-media-remote/internal/reactive"
	"github.com/sirosfoundation/go-media-remote/internal/sdk"
	"github.com/sirosfoundation/go-media-remote/pkg/config"
)

type testEnv struct {
	sys    *reactive.System
	auth   *auth.State
	http   *httpclient.Adapter
	sdk    *sdk.SDK
	errors []error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}
	env.sys = reactive.NewSystem(reactive.WithErrorHandler(func(err error) {
		env.errors = append(env.errors, err)
	}))
	env.auth = auth.NewState(env.sys, zap.NewNop())
	env.http = httpclient.New(config.HTTPConfig{
		Timeout:   5 * time.Second,
		UserAgent: "remote-test/1.0",
	}, zap.NewNop())
	env.sdk = sdk.New(sdk.ClientInfo{Name: "test", Version: "1.0.0"}, sdk.DeviceInfo{Name: "dev", ID: "dev-1"}, zap.NewNop())
	return env
}

func (env *testEnv) newRemote(t *testing.T) *Remote {
	t.Helper()
	r, err := New(Deps{
		Auth:   env.auth,
		HTTP:   env.http,
		SDK:    env.sdk,
		System: env.sys,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

// assertBound checks the handle/base address invariant
func assertBound(t *testing.T, env *testEnv, r *Remote) {
	t.Helper()
	server := env.auth.CurrentServer()
	if server == nil {
		assert.Nil(t, r.API())
		assert.Empty(t, env.http.Instance().BaseURL())
		return
	}
	require.NotNil(t, r.API())
	assert.Equal(t, server.PublicAddress, env.http.Instance().BaseURL())
	assert.Equal(t, server.PublicAddress, r.API().BasePath())
	assert.Equal(t, env.auth.CurrentUserToken(), r.API().AccessToken())
}

func TestNew_RequiresDeps(t *testing.T) {
	env := newTestEnv(t)

	_, err := New(Deps{HTTP: env.http, SDK: env.sdk, System: env.sys})
	assert.Error(t, err)
	_, err = New(Deps{Auth: env.auth, SDK: env.sdk, System: env.sys})
	assert.Error(t, err)
	_, err = New(Deps{Auth: env.auth, HTTP: env.http, System: env.sys})
	assert.Error(t, err)
	_, err = New(Deps{Auth: env.auth, HTTP: env.http, SDK: env.sdk})
	assert.Error(t, err)
}

func TestRemote_Scenario(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	assert.Nil(t, r.API())
	assert.Empty(t, env.http.Instance().BaseURL())

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	require.NotNil(t, r.API())
	assert.Equal(t, "https://a.test", env.http.Instance().BaseURL())
	assert.Equal(t, "tok1", r.API().AccessToken())
	assert.Same(t, env.http.Instance(), r.API().HTTPClient())

	env.auth.SetCurrentServer(nil)
	assert.Nil(t, r.API())
	assert.Empty(t, env.http.Instance().BaseURL())
	assert.Empty(t, env.errors)
}

func TestRemote_EagerBinding(t *testing.T) {
	env := newTestEnv(t)
	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")

	r := env.newRemote(t)
	assertBound(t, env, r)
}

func TestRemote_ResetRestoresDefaults(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	env.http.Instance().SetHeader("X-Session", "abc")

	env.auth.Disconnect()

	assert.Nil(t, r.API())
	assert.Equal(t, env.http.InitialDefaults(), env.http.Instance().Defaults())
	assert.Empty(t, env.http.Instance().Defaults().Header.Get("X-Session"))
}

func TestRemote_TokenChangesRebuildHandle(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "")
	anonymous := r.API()
	require.NotNil(t, anonymous)
	assert.Empty(t, anonymous.AccessToken())

	env.auth.SetCurrentUserToken("tok1")
	require.NotNil(t, r.API())
	assert.NotSame(t, anonymous, r.API())
	assert.Equal(t, "tok1", r.API().AccessToken())
	assert.Empty(t, anonymous.AccessToken(), "handles are replaced, never mutated")

	env.auth.Logout()
	assertBound(t, env, r)
	assert.Empty(t, r.API().AccessToken())
}

func TestRemote_ReemitSameState(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	first := r.API()
	firstDefaults := env.http.Instance().Defaults()

	env.auth.SetCurrentServer(&auth.ServerDescriptor{PublicAddress: "https://a.test"})

	assert.Equal(t, firstDefaults, env.http.Instance().Defaults())
	assert.Equal(t, first.BasePath(), r.API().BasePath())
	assert.Equal(t, first.AccessToken(), r.API().AccessToken())
}

func TestRemote_ConnectRecomputesOnce(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	var handles []*sdk.API
	r.APIRef().Subscribe(func() { handles = append(handles, r.API()) })

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	require.Len(t, handles, 1)
	assert.Equal(t, "tok1", handles[0].AccessToken())
}

func TestRemote_ObserversSeeConsistentState(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	var mismatches int
	r.APIRef().Subscribe(func() {
		api := r.API()
		if api != nil && api.BasePath() != env.http.Instance().BaseURL() {
			mismatches++
		}
	})

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	env.auth.SetCurrentServer(&auth.ServerDescriptor{PublicAddress: "https://b.test"})
	env.auth.Disconnect()

	assert.Zero(t, mismatches)
}

func TestRemote_FactoryErrorPropagates(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	previous := r.API()

	env.auth.SetCurrentServer(&auth.ServerDescriptor{PublicAddress: "not a url"})

	require.Len(t, env.errors, 1)
	assert.ErrorIs(t, env.errors[0], sdk.ErrInvalidAddress)
	assert.Same(t, previous, r.API(), "failed recomputation leaves the previous state")
	assert.Equal(t, "https://a.test", env.http.Instance().BaseURL())
}

func TestNew_EagerFactoryError(t *testing.T) {
	env := newTestEnv(t)
	env.auth.SetCurrentServer(&auth.ServerDescriptor{PublicAddress: "ftp://a.test"})

	_, err := New(Deps{Auth: env.auth, HTTP: env.http, SDK: env.sdk, System: env.sys})
	assert.ErrorIs(t, err, sdk.ErrInvalidAddress)
	assert.Equal(t, 0, env.auth.ServerRef().(*reactive.Ref[*auth.ServerDescriptor]).Subscribers())
}

func TestRemote_PausedScopeIgnoresChanges(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	r.Scope().Pause()
	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	assert.Nil(t, r.API())

	r.Scope().Resume()
	assert.Nil(t, r.API(), "missed changes are not replayed")

	env.auth.SetCurrentUserToken("tok2")
	assertBound(t, env, r)
}

func TestRemote_Close(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	r.Close()
	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	assert.Nil(t, r.API())
}

func TestRemote_PassThroughs(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	assert.Equal(t, env.sdk.ClientInfo(), r.ClientInfo())
	assert.Equal(t, env.sdk.DeviceInfo(), r.DeviceInfo())
	assert.Same(t, env.sdk.Discovery(), r.Discovery())

	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")
	api, err := r.OneTimeSetup("https://b.test", "other")
	require.NoError(t, err)
	assert.Equal(t, "https://b.test", api.BasePath())
	assert.NotSame(t, env.http.Instance(), api.HTTPClient())
	assert.Equal(t, "https://a.test", env.http.Instance().BaseURL())
}

func TestNewUserAPI(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)
	env.auth.Connect(&auth.ServerDescriptor{PublicAddress: "https://a.test"}, "tok1")

	token := NewUserAPI(r, func(api *sdk.API) string { return api.AccessToken() })
	assert.Equal(t, "tok1", token)
}

func TestRemote_InvariantHoldsForRandomSequences(t *testing.T) {
	env := newTestEnv(t)
	r := env.newRemote(t)

	servers := []*auth.ServerDescriptor{
		nil,
		{PublicAddress: "https://a.test"},
		{PublicAddress: "https://b.test:8920"},
		{PublicAddress: "http://c.test/jellyfin"},
	}
	tokens := []string{"", "tok1", "tok2"}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		server := servers[rng.Intn(len(servers))]
		token := tokens[rng.Intn(len(tokens))]

		switch rng.Intn(4) {
		case 0:
			env.auth.Connect(server, token)
		case 1:
			env.auth.SetCurrentServer(server)
		case 2:
			env.auth.SetCurrentUserToken(token)
		default:
			env.auth.Disconnect()
		}
		assertBound(t, env, r)
	}
	assert.Empty(t, env.errors)
}
