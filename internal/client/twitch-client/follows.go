package twitch_client

import (
	"context"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_indicator/internal/models"
)

// FetchFollowedChannels fetches the full followed channel list of userID.
// The result replaces the previous snapshot wholesale.
//
// https://dev.twitch.tv/docs/api/reference/#get-followed-channels
func (twc *TwitchClient) FetchFollowedChannels(ctx context.Context, userID string) (data []models.FollowedChannel, err error) {

	params := url.Values{}
	params.Set("user_id", userID)

	items, err := twc.getPaginated(ctx, "channels/followed", params)
	if err != nil {
		return nil, err
	}

	data = make([]models.FollowedChannel, 0, len(items))
	for _, item := range items {
		var channel models.FollowedChannel
		if err = jsoniter.Unmarshal(item, &channel); err != nil {
			return nil, errors.Wrap(err, "Unmarshal")
		}
		data = append(data, channel)
	}

	return
}
