package twitch_auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"twitch_indicator/internal/models"
	"twitch_indicator/internal/service/token_store"
)

const (
	twitchIDSchemeHost string = "https://id.twitch.tv"

	authRedirectURI = "http://localhost:17563"

	stateAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	stateLength   = 30

	// Bounded wait for the browser redirect so an abandoned flow cannot
	// keep the port bound forever.
	redirectWaitLimit = 5 * time.Minute
)

// ErrFlowInProgress reports that an interactive authorization attempt is
// already running.
var ErrFlowInProgress = errors.New("authorization flow already in progress")

// AuthFlow drives the implicit grant flow: open the authorization URL in a
// browser, receive the redirect on a short-lived local server, validate the
// response and persist the token.
//
// https://dev.twitch.tv/docs/authentication/getting-tokens-oauth/#implicit-grant-flow
type AuthFlow struct {
	clientID    string
	scopes      []models.Scope
	tokenStore  *token_store.TokenStore
	redirectURI string

	// OnToken receives each freshly acquired token before waiters blocked
	// on authDone are released. Optional, set before the first flow.
	OnToken func(token string)

	mu       sync.Mutex
	running  bool
	state    string
	token    string
	acquired chan struct{}
}

func NewAuthFlow(clientID string, scopes []models.Scope, tokenStore *token_store.TokenStore) *AuthFlow {
	return &AuthFlow{
		clientID:    clientID,
		scopes:      scopes,
		tokenStore:  tokenStore,
		redirectURI: authRedirectURI,
	}
}

// AcquireToken runs one interactive authorization attempt. authDone is
// released exactly once, whatever the outcome, so callers suspended on it
// never stay blocked. An empty flow result is reported as an error, the
// caller decides whether to retry or quit.
func (af *AuthFlow) AcquireToken(ctx context.Context, authDone chan struct{}) (token string, err error) {

	defer func() {
		if authDone != nil {
			close(authDone)
		}
	}()

	af.mu.Lock()
	if af.running {
		af.mu.Unlock()
		return "", ErrFlowInProgress
	}
	af.running = true
	af.state, err = generateState()
	af.token = ""
	af.acquired = make(chan struct{})
	acquired := af.acquired
	af.mu.Unlock()

	defer func() {
		af.mu.Lock()
		af.running = false
		af.state = ""
		af.acquired = nil
		af.mu.Unlock()
	}()

	if err != nil {
		return "", errors.Wrap(err, "generateState")
	}

	redirectParts, err := url.Parse(af.redirectURI)
	if err != nil {
		return "", errors.Wrap(err, "Parse")
	}

	router := mux.NewRouter()
	router.HandleFunc("/", af.handleRedirect).Methods("GET")
	router.HandleFunc("/success", af.handleSuccess).Methods("GET")

	listener, err := net.Listen("tcp", redirectParts.Host)
	if err != nil {
		return "", errors.Wrap(err, "Listen")
	}

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != http.ErrServerClosed {
			logrus.Errorf("oauth webserver error: %v", serveErr)
		}
	}()
	logrus.Info("started oauth webserver")

	// The server must never stay bound to its port, whatever happens below.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logrus.Errorf("oauth webserver shutdown error: %v", shutdownErr)
		}
		logrus.Info("stopped oauth webserver")
	}()

	authURL := af.buildAuthURL()
	if err = openBrowser(authURL); err != nil {
		logrus.Errorf("could not open browser, authorize manually: %s", authURL)
	}

	select {
	case <-acquired:
	case <-time.After(redirectWaitLimit):
		return "", errors.New("timed out waiting for authorization redirect")
	case <-ctx.Done():
		return "", ctx.Err()
	}

	af.mu.Lock()
	token = af.token
	af.mu.Unlock()

	if token == "" {
		return "", errors.New("no token acquired")
	}

	if err = af.tokenStore.Store(token); err != nil {
		return "", errors.Wrap(err, "Store")
	}

	// The new credential must be in place before the deferred close of
	// authDone wakes any suspended request.
	if af.OnToken != nil {
		af.OnToken(token)
	}

	return token, nil
}

// handleRedirect serves the page the provider redirects to. The token
// arrives in the URL fragment, which the server cannot read, so the page
// forwards the fragment parameters to /success as a query string.
func (af *AuthFlow) handleRedirect(w http.ResponseWriter, r *http.Request) {
	logrus.Debug("oauth redirect request")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, strings.ReplaceAll(redirectPage, "__SUCCESS_URL__", af.redirectURI+"/success"))
}

// handleSuccess validates the forwarded response and extracts the token.
// A state mismatch or wrong token type is a protocol violation and rejected.
func (af *AuthFlow) handleSuccess(w http.ResponseWriter, r *http.Request) {
	logrus.Debug("oauth success request")

	query := r.URL.Query()

	af.mu.Lock()
	expectedState := af.state
	running := af.acquired != nil
	af.mu.Unlock()

	if !running {
		http.Error(w, "no authorization in progress", http.StatusConflict)
		return
	}

	defer af.signalAcquired()

	token := query.Get("access_token")
	switch {
	case query.Get("token_type") != "bearer":
		logrus.Error("oauth response with unexpected token type")
	case query.Get("state") != expectedState:
		logrus.Error("oauth response with mismatched state")
	case token == "":
		logrus.Error("oauth response without access token")
	default:
		af.mu.Lock()
		af.token = token
		af.mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, successPage)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprint(w, failurePage)
}

// signalAcquired wakes the waiting flow exactly once, even if the browser
// replays the success request.
func (af *AuthFlow) signalAcquired() {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.acquired == nil {
		return
	}

	select {
	case <-af.acquired:
	default:
		close(af.acquired)
	}
}

func (af *AuthFlow) buildAuthURL() string {

	scopes := make([]string, 0, len(af.scopes))
	for _, scope := range af.scopes {
		scopes = append(scopes, string(scope))
	}

	query := url.Values{}
	query.Set("client_id", af.clientID)
	query.Set("force_verify", "false")
	query.Set("redirect_uri", af.redirectURI)
	query.Set("response_type", "token")
	query.Set("scope", strings.Join(scopes, " "))
	query.Set("state", af.state)

	return twitchIDSchemeHost + "/oauth2/authorize?" + query.Encode()
}

func generateState() (string, error) {

	state := make([]byte, stateLength)
	for i := range state {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(stateAlphabet))))
		if err != nil {
			return "", err
		}
		state[i] = stateAlphabet[n.Int64()]
	}

	return string(state), nil
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
