package twitch_client

import (
	"context"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_indicator/internal/models"
)

// GetUsersInfo fetches profile info for ids in batches of the API page size.
// Results bypass the channel info cache because callers want the current
// profile image URL.
//
// https://dev.twitch.tv/docs/api/reference/#get-users
func (twc *TwitchClient) GetUsersInfo(ctx context.Context, ids []string) (data []models.TwitchUserInfo, err error) {

	data = make([]models.TwitchUserInfo, 0, len(ids))

	for idx := 0; idx < len(ids); idx += pageSize {
		max := idx + pageSize
		if max > len(ids) {
			max = len(ids)
		}

		params := url.Values{}
		for _, id := range ids[idx:max] {
			params.Add("id", id)
		}

		body, err := twc.get(ctx, twc.buildURL("users", params))
		if err != nil {
			return nil, err
		}

		var usersInfo models.GetUserInfoResponse
		if err = jsoniter.Unmarshal(body, &usersInfo); err != nil {
			return nil, errors.Wrap(err, "Unmarshal")
		}

		data = append(data, usersInfo.Data...)
	}

	twc.cacheMu.Lock()
	for _, userInfo := range data {
		twc.channelInfoCache[userInfo.UserID] = userInfo
	}
	twc.cacheMu.Unlock()

	return
}

// GetUserInfo returns the cached channel info for id, fetching it on a miss.
func (twc *TwitchClient) GetUserInfo(ctx context.Context, id string) (data *models.TwitchUserInfo, err error) {

	twc.cacheMu.Lock()
	cached, ok := twc.channelInfoCache[id]
	twc.cacheMu.Unlock()
	if ok {
		return &cached, nil
	}

	usersInfo, err := twc.GetUsersInfo(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	if len(usersInfo) != 1 {
		return nil, errors.Errorf("expected one user for id %s, got %d", id, len(usersInfo))
	}

	return &usersInfo[0], nil
}
