package models

import "time"

type FollowedChannels struct {
	FollowInfo []FollowedChannel `json:"data"`
	Total      uint64            `json:"total"`
	Pagination Pagination        `json:"pagination"`
}

type FollowedChannel struct {
	BroadcasterId    string    `json:"broadcaster_id"`    // ID of the followed broadcaster
	BroadcasterLogin string    `json:"broadcaster_login"` // Login of the followed broadcaster
	BroadcasterName  string    `json:"broadcaster_name"`  // Display name corresponding to broadcaster_id
	FollowedAt       time.Time `json:"followed_at"`       // UTC timestamp when the follow was created
}
