package twitch_client

import (
	"context"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_indicator/internal/models"
)

// GetGameInfo returns the cached game info for id, fetching it on a miss.
// Used when a stream record arrives without a game name.
//
// https://dev.twitch.tv/docs/api/reference/#get-games
func (twc *TwitchClient) GetGameInfo(ctx context.Context, id string) (data *models.GameInfo, err error) {

	twc.cacheMu.Lock()
	cached, ok := twc.gameInfoCache[id]
	twc.cacheMu.Unlock()
	if ok {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("id", id)

	body, err := twc.get(ctx, twc.buildURL("games", params))
	if err != nil {
		return nil, err
	}

	var gamesInfo models.GetGameInfoResponse
	if err = jsoniter.Unmarshal(body, &gamesInfo); err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}

	if len(gamesInfo.Data) != 1 {
		return nil, errors.Errorf("expected one game for id %s, got %d", id, len(gamesInfo.Data))
	}

	twc.cacheMu.Lock()
	twc.gameInfoCache[id] = gamesInfo.Data[0]
	twc.cacheMu.Unlock()

	return &gamesInfo.Data[0], nil
}
