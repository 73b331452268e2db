package twitch_client

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_indicator/internal/models"
)

// ValidateToken checks the current token against the validation endpoint.
// The platform requires clients to re-run this hourly.
//
// https://dev.twitch.tv/docs/authentication/validate-tokens/
func (twc *TwitchClient) ValidateToken(ctx context.Context) (data *models.ValidationInfo, err error) {

	body, err := twc.get(ctx, twc.idSchemeHost+"/oauth2/validate")
	if err != nil {
		return nil, err
	}

	var validationInfo models.ValidationInfo
	err = jsoniter.Unmarshal(body, &validationInfo)
	if err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}

	data = &validationInfo

	return
}
