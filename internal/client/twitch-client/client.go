package twitch_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"twitch_indicator/internal/models"
)

const (
	twitchApiSchemeHost string = "https://api.twitch.tv"
	twitchIDSchemeHost  string = "https://id.twitch.tv"

	// Helix caps page size at 100.
	pageSize = 100

	requestAttempts       = 3
	rateLimitBackoffStart = time.Second
)

// AuthRequester asks the GUI collaborator to run the interactive auth flow.
// It must not block; authDone is closed once the flow finished, successfully
// or not.
type AuthRequester func(authDone chan struct{})

type TwitchClient struct {
	client      http.Client
	clientID    string
	requestAuth AuthRequester

	apiSchemeHost string
	idSchemeHost  string

	tokenMu sync.Mutex
	token   string

	cacheMu          sync.Mutex
	channelInfoCache map[string]models.TwitchUserInfo
	gameInfoCache    map[string]models.GameInfo
}

func NewTwitchClient(clientID string, requestAuth AuthRequester) *TwitchClient {
	return &TwitchClient{
		client: http.Client{
			Timeout: time.Second * 5,
		},
		clientID:         clientID,
		requestAuth:      requestAuth,
		apiSchemeHost:    twitchApiSchemeHost,
		idSchemeHost:     twitchIDSchemeHost,
		channelInfoCache: make(map[string]models.TwitchUserInfo),
		gameInfoCache:    make(map[string]models.GameInfo),
	}
}

func (twc *TwitchClient) SetToken(token string) {
	twc.tokenMu.Lock()
	defer twc.tokenMu.Unlock()

	twc.token = token
}

func (twc *TwitchClient) Token() string {
	twc.tokenMu.Lock()
	defer twc.tokenMu.Unlock()

	return twc.token
}

// SetSchemeHosts points the client at alternate API and ID endpoints, for
// mock servers.
func (twc *TwitchClient) SetSchemeHosts(apiSchemeHost, idSchemeHost string) {
	twc.apiSchemeHost = apiSchemeHost
	twc.idSchemeHost = idSchemeHost
}

// InvalidateToken drops the in-memory credential after a 401 or on logout.
// The token file is handled separately by the token store.
func (twc *TwitchClient) InvalidateToken() {
	twc.SetToken("")
}

// Close releases pooled HTTP connections on shutdown.
func (twc *TwitchClient) Close() {
	twc.client.CloseIdleConnections()
}

// ClearCache drops the channel and game info caches. Called on logout and
// settings changes.
func (twc *TwitchClient) ClearCache() {
	twc.cacheMu.Lock()
	defer twc.cacheMu.Unlock()

	twc.channelInfoCache = make(map[string]models.TwitchUserInfo)
	twc.gameInfoCache = make(map[string]models.GameInfo)

	logrus.Debug("twitch client cache cleared")
}

func (twc *TwitchClient) buildURL(loc string, params url.Values) string {
	u := twc.apiSchemeHost + "/helix/" + loc
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	return u
}

// get is the foundational request primitive. It runs up to requestAttempts
// attempts. A 401 clears the credential, asks the GUI for re-authentication
// and suspends until the flow finished, so authentication failures self-heal
// in place. A 429 backs off with an increasing delay. Any other failure is
// fatal for this call.
func (twc *TwitchClient) get(ctx context.Context, reqURL string) (data []byte, err error) {

	backoff := rateLimitBackoffStart

	for attempt := 1; attempt <= requestAttempts; attempt++ {

		logrus.Debugf("twitch api request: attempt %d/%d GET %s", attempt, requestAttempts, reqURL)

		data, err = twc.doRequest(ctx, reqURL)
		if err == nil {
			return data, nil
		}

		switch {
		case errors.Is(err, models.ErrNotAuthorized):
			logrus.Info("twitch api request not authorized")
			twc.InvalidateToken()
			if waitErr := twc.waitForAuth(ctx); waitErr != nil {
				return nil, waitErr
			}

		case errors.Is(err, models.ErrRateLimitExceeded):
			logrus.Infof("twitch api rate limit exceeded, retrying in %s", backoff)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		default:
			return nil, err
		}
	}

	return nil, errors.Wrapf(err, "request failed after %d attempts", requestAttempts)
}

func (twc *TwitchClient) doRequest(ctx context.Context, reqURL string) ([]byte, error) {

	// Do not even attempt the call without a credential.
	token := twc.Token()
	if token == "" {
		return nil, models.ErrNotAuthorized
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Client-Id", twc.clientID)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := twc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return readedResp, nil

	case http.StatusUnauthorized:
		var unauthorizedResp models.APIError
		if err = jsoniter.Unmarshal(readedResp, &unauthorizedResp); err == nil {
			logrus.Debugf("twitch api unauthorized: %s", unauthorizedResp.Message)
		}

		return nil, models.ErrNotAuthorized

	case http.StatusTooManyRequests:
		return nil, models.ErrRateLimitExceeded

	default:
		return nil, errors.Errorf("twitch api request failed with status code: %d", resp.StatusCode)
	}
}

// waitForAuth schedules the GUI auth prompt and suspends until the flow
// signals completion. The attempt loop in get decides whether to retry.
func (twc *TwitchClient) waitForAuth(ctx context.Context) error {

	if twc.requestAuth == nil {
		return models.ErrNotAuthorized
	}

	authDone := make(chan struct{})
	twc.requestAuth(authDone)

	logrus.Debug("waiting for authorization")

	select {
	case <-authDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// getPaginated walks a cursor-paginated endpoint and accumulates all pages'
// data arrays. A response without a pagination block is the final page.
func (twc *TwitchClient) getPaginated(ctx context.Context, loc string, params url.Values) (items []jsoniter.RawMessage, err error) {

	params.Set("first", strconv.Itoa(pageSize))

	for {
		body, err := twc.get(ctx, twc.buildURL(loc, params))
		if err != nil {
			return nil, err
		}

		var page struct {
			Data       []jsoniter.RawMessage `json:"data"`
			Pagination models.Pagination     `json:"pagination"`
		}
		if err = jsoniter.Unmarshal(body, &page); err != nil {
			return nil, errors.Wrap(err, "Unmarshal")
		}

		items = append(items, page.Data...)

		if page.Pagination.Cursor == "" {
			return items, nil
		}

		params.Set("after", page.Pagination.Cursor)
	}
}
