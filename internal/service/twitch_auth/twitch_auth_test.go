package twitch_auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch_indicator/internal/models"
	"twitch_indicator/internal/service/token_store"
)

func newTestAuthFlow(t *testing.T) (*AuthFlow, *token_store.TokenStore) {
	t.Helper()

	// Grab a free port so parallel tests cannot collide on the default one.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	tokenStore := token_store.NewTokenStore(t.TempDir())

	af := NewAuthFlow("test-client-id", []models.Scope{models.UserReadFollows}, tokenStore)
	af.redirectURI = fmt.Sprintf("http://127.0.0.1:%d", port)

	return af, tokenStore
}

// currentState polls until the running flow has generated its state value.
func currentState(t *testing.T, af *AuthFlow) string {
	t.Helper()

	var state string
	require.Eventually(t, func() bool {
		af.mu.Lock()
		state = af.state
		af.mu.Unlock()
		return state != ""
	}, 5*time.Second, 10*time.Millisecond)

	return state
}

func waitForWebserver(t *testing.T, baseURL string) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGenerateState(t *testing.T) {
	first, err := generateState()
	require.NoError(t, err)
	second, err := generateState()
	require.NoError(t, err)

	assert.Len(t, first, stateLength)
	assert.NotEqual(t, first, second)
	for _, c := range first {
		assert.Contains(t, stateAlphabet, string(c))
	}
}

func TestBuildAuthURL(t *testing.T) {
	af, _ := newTestAuthFlow(t)
	af.state = "test-state"

	parsed, err := url.Parse(af.buildAuthURL())
	require.NoError(t, err)

	assert.Equal(t, "id.twitch.tv", parsed.Host)
	assert.Equal(t, "/oauth2/authorize", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "test-client-id", query.Get("client_id"))
	assert.Equal(t, af.redirectURI, query.Get("redirect_uri"))
	assert.Equal(t, "token", query.Get("response_type"))
	assert.Equal(t, "user:read:follows", query.Get("scope"))
	assert.Equal(t, "test-state", query.Get("state"))
}

func TestAcquireTokenSuccess(t *testing.T) {
	af, tokenStore := newTestAuthFlow(t)

	authDone := make(chan struct{})
	type result struct {
		token string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		token, err := af.AcquireToken(context.Background(), authDone)
		resultCh <- result{token: token, err: err}
	}()

	waitForWebserver(t, af.redirectURI)
	state := currentState(t, af)

	// The redirect page forwards the fragment parameters to /success.
	resp, err := http.Get(af.redirectURI + "/success?" + url.Values{
		"access_token": {"tok123"},
		"state":        {state},
		"token_type":   {"bearer"},
	}.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.Equal(t, "tok123", res.token)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not finish")
	}

	select {
	case <-authDone:
	default:
		t.Fatal("authDone not released")
	}

	stored, err := tokenStore.Restore()
	require.NoError(t, err)
	assert.Equal(t, "tok123", stored)
}

func TestAcquireTokenInstallsTokenBeforeSignal(t *testing.T) {
	af, _ := newTestAuthFlow(t)

	authDone := make(chan struct{})

	var installed string
	var beforeRelease bool
	af.OnToken = func(token string) {
		installed = token
		select {
		case <-authDone:
		default:
			beforeRelease = true
		}
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := af.AcquireToken(context.Background(), authDone)
		errCh <- err
	}()

	waitForWebserver(t, af.redirectURI)
	state := currentState(t, af)

	resp, err := http.Get(af.redirectURI + "/success?" + url.Values{
		"access_token": {"tok456"},
		"state":        {state},
		"token_type":   {"bearer"},
	}.Encode())
	require.NoError(t, err)
	resp.Body.Close()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not finish")
	}

	assert.Equal(t, "tok456", installed)
	assert.True(t, beforeRelease, "token installed only after authDone was released")
}

func TestAcquireTokenRejectsConcurrentFlow(t *testing.T) {
	af, _ := newTestAuthFlow(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := af.AcquireToken(ctx, make(chan struct{}))
		errCh <- err
	}()

	waitForWebserver(t, af.redirectURI)

	_, err := af.AcquireToken(context.Background(), make(chan struct{}))
	assert.ErrorIs(t, err, ErrFlowInProgress)

	cancel()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("first flow did not finish")
	}
}

func TestAcquireTokenRejectsMismatchedState(t *testing.T) {
	af, tokenStore := newTestAuthFlow(t)

	authDone := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		_, err := af.AcquireToken(context.Background(), authDone)
		errCh <- err
	}()

	waitForWebserver(t, af.redirectURI)
	state := currentState(t, af)

	resp, err := http.Get(af.redirectURI + "/success?" + url.Values{
		"access_token": {"tok123"},
		"state":        {state + "-tampered"},
		"token_type":   {"bearer"},
	}.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not finish")
	}

	select {
	case <-authDone:
	default:
		t.Fatal("authDone not released")
	}

	stored, err := tokenStore.Restore()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAcquireTokenCancelled(t *testing.T) {
	af, _ := newTestAuthFlow(t)

	ctx, cancel := context.WithCancel(context.Background())
	authDone := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		_, err := af.AcquireToken(ctx, authDone)
		errCh <- err
	}()

	waitForWebserver(t, af.redirectURI)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not finish")
	}
}

func TestHandleSuccessWithoutRunningFlow(t *testing.T) {
	af, _ := newTestAuthFlow(t)

	req := httptest.NewRequest("GET", "/success?access_token=tok&token_type=bearer&state=x", nil)
	rec := httptest.NewRecorder()

	af.handleSuccess(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRedirectForwardsToSuccessURL(t *testing.T) {
	af, _ := newTestAuthFlow(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	af.handleRedirect(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), af.redirectURI+"/success"))
}
