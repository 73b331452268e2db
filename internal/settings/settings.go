package settings

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"twitch_indicator/internal/models"
)

const (
	KeyEnableNotifications       = "enable-notifications"
	KeyShowGamePlaying           = "show-game-playing"
	KeyShowViewerCount           = "show-viewer-count"
	KeyShowSelectedChannelsOnTop = "show-selected-channels-on-top"
	KeyRefreshInterval           = "refresh-interval"
	KeyOpenCommand               = "open-command"
	KeyEnabledChannelIds         = "enabled-channel-ids"
)

// refresh-interval is stored in minutes and clamped to this range.
const (
	refreshIntervalMinMinutes = 0.5
	refreshIntervalMaxMinutes = 15
)

// Settings is the persistent key-value store backed by a config file in the
// user config dir. Writes from the channel chooser and reads from the poller
// may happen on different threads, hence the lock.
type Settings struct {
	mu sync.Mutex
	v  *viper.Viper
}

func NewSettings(configDir string) (*Settings, error) {

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault(KeyEnableNotifications, true)
	v.SetDefault(KeyShowGamePlaying, true)
	v.SetDefault(KeyShowViewerCount, true)
	v.SetDefault(KeyShowSelectedChannelsOnTop, true)
	v.SetDefault(KeyRefreshInterval, 2.0)
	v.SetDefault(KeyOpenCommand, "")
	v.SetDefault(KeyEnabledChannelIds, "")

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "ReadInConfig")
		}

		if err = v.SafeWriteConfig(); err != nil {
			return nil, errors.Wrap(err, "SafeWriteConfig")
		}
	}

	return &Settings{v: v}, nil
}

func (s *Settings) GetBoolean(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.GetBool(key)
}

func (s *Settings) SetBoolean(key string, val bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, val)

	return s.v.WriteConfig()
}

func (s *Settings) OpenCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.GetString(KeyOpenCommand)
}

// RefreshInterval returns the configured poll period clamped to the allowed
// range.
func (s *Settings) RefreshInterval() time.Duration {
	s.mu.Lock()
	minutes := s.v.GetFloat64(KeyRefreshInterval)
	s.mu.Unlock()

	return ClampRefreshInterval(minutes)
}

func ClampRefreshInterval(minutes float64) time.Duration {
	if minutes < refreshIntervalMinMinutes {
		minutes = refreshIntervalMinMinutes
	}
	if minutes > refreshIntervalMaxMinutes {
		minutes = refreshIntervalMaxMinutes
	}

	return time.Duration(minutes * float64(time.Minute))
}

// EnabledChannels parses the serialized "id:state" pairs. Malformed entries
// are skipped so a hand-edited config file cannot break startup.
func (s *Settings) EnabledChannels() map[string]models.ChannelState {
	s.mu.Lock()
	serialized := s.v.GetString(KeyEnabledChannelIds)
	s.mu.Unlock()

	enabled := make(map[string]models.ChannelState)
	for _, pair := range strings.Split(serialized, ",") {
		channelID, val, found := strings.Cut(pair, ":")
		if !found || channelID == "" {
			continue
		}
		enabled[channelID] = models.ChannelState(val)
	}

	return enabled
}

// SetEnabledChannels serializes and persists the enablement map. Entries are
// sorted to keep the config file diff-friendly.
func (s *Settings) SetEnabledChannels(enabled map[string]models.ChannelState) error {

	pairs := make([]string, 0, len(enabled))
	for channelID, val := range enabled {
		pairs = append(pairs, fmt.Sprintf("%s:%s", channelID, val))
	}
	sort.Strings(pairs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(KeyEnabledChannelIds, strings.Join(pairs, ","))

	return s.v.WriteConfig()
}

// Watch reports refresh-interval changes made to the config file while the
// app is running. onRefreshIntervalChange receives the clamped new period.
func (s *Settings) Watch(onRefreshIntervalChange func(time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.v.GetFloat64(KeyRefreshInterval)

	s.v.OnConfigChange(func(in fsnotify.Event) {
		s.mu.Lock()
		minutes := s.v.GetFloat64(KeyRefreshInterval)
		changed := minutes != last
		last = minutes
		s.mu.Unlock()

		if changed {
			logrus.Infof("refresh interval changed to %.1f minutes", minutes)
			onRefreshIntervalChange(ClampRefreshInterval(minutes))
		}
	})
	s.v.WatchConfig()
}
