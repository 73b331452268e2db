package models

type Scope string

var (
	UserReadFollows Scope = "user:read:follows"
)

// ValidationInfo is the result of the token validation endpoint. A new value
// supersedes the previous one wholesale on each validation.
type ValidationInfo struct {
	ClientId  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserId    string   `json:"user_id"`
	ExpiresIn uint64   `json:"expires_in"`
}

// ChannelState is the per-broadcaster notification enablement, persisted in
// settings as comma-joined "id:state" pairs.
type ChannelState string

const (
	ChannelDisabled ChannelState = "0"
	ChannelEnabled  ChannelState = "1"
	ChannelRealtime ChannelState = "2"
)

// Channels absent from the enabled map default to enabled.
const DefaultChannelState = ChannelEnabled
