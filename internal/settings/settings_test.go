package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch_indicator/internal/models"
)

func TestDefaultsAndConfigFileCreation(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSettings(dir)
	require.NoError(t, err)

	assert.True(t, s.GetBoolean(KeyEnableNotifications))
	assert.True(t, s.GetBoolean(KeyShowGamePlaying))
	assert.True(t, s.GetBoolean(KeyShowViewerCount))
	assert.Equal(t, 2*time.Minute, s.RefreshInterval())
	assert.Empty(t, s.OpenCommand())
	assert.Empty(t, s.EnabledChannels())

	// A config file is written on first run.
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestSetBooleanPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSettings(dir)
	require.NoError(t, err)

	require.NoError(t, s.SetBoolean(KeyEnableNotifications, false))

	reopened, err := NewSettings(dir)
	require.NoError(t, err)
	assert.False(t, reopened.GetBoolean(KeyEnableNotifications))
}

func TestEnabledChannelsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSettings(dir)
	require.NoError(t, err)

	enabled := map[string]models.ChannelState{
		"12": models.ChannelEnabled,
		"34": models.ChannelDisabled,
		"56": models.ChannelRealtime,
	}
	require.NoError(t, s.SetEnabledChannels(enabled))

	reopened, err := NewSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, enabled, reopened.EnabledChannels())
}

func TestEnabledChannelsSkipsMalformedEntries(t *testing.T) {
	dir := t.TempDir()

	cfg := "enabled-channel-ids: \"12:1,badentry,:0,34:2\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644))

	s, err := NewSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, map[string]models.ChannelState{
		"12": models.ChannelEnabled,
		"34": models.ChannelRealtime,
	}, s.EnabledChannels())
}

func TestRefreshIntervalClampedFromConfig(t *testing.T) {
	dir := t.TempDir()

	cfg := "refresh-interval: 0.1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644))

	s, err := NewSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, s.RefreshInterval())
}

func TestClampRefreshInterval(t *testing.T) {
	cases := []struct {
		minutes float64
		want    time.Duration
	}{
		{0.1, 30 * time.Second},
		{0.5, 30 * time.Second},
		{2, 2 * time.Minute},
		{15, 15 * time.Minute},
		{100, 15 * time.Minute},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ClampRefreshInterval(c.minutes), "minutes=%v", c.minutes)
	}
}
