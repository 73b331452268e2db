package twitch_client

import (
	"context"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_indicator/internal/models"
)

// FetchFollowedStreams fetches all live streams followed by userID.
//
// https://dev.twitch.tv/docs/api/reference/#get-followed-streams
func (twc *TwitchClient) FetchFollowedStreams(ctx context.Context, userID string) (data []models.Stream, err error) {

	params := url.Values{}
	params.Set("user_id", userID)

	items, err := twc.getPaginated(ctx, "streams/followed", params)
	if err != nil {
		return nil, err
	}

	data = make([]models.Stream, 0, len(items))
	for _, item := range items {
		var stream models.Stream
		if err = jsoniter.Unmarshal(item, &stream); err != nil {
			return nil, errors.Wrap(err, "Unmarshal")
		}
		data = append(data, stream)
	}

	return
}
