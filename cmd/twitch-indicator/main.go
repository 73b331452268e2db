package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	fileClient "twitch_indicator/internal/client/file"
	twitchClient "twitch_indicator/internal/client/twitch-client"
	"twitch_indicator/internal/mainloop"
	"twitch_indicator/internal/models"
	"twitch_indicator/internal/state"
	"twitch_indicator/internal/utils/formater"

	notificationService "twitch_indicator/internal/service/notification"
	profileImageService "twitch_indicator/internal/service/profile_image"
	streamPollerService "twitch_indicator/internal/service/stream_poller"
	tokenStoreService "twitch_indicator/internal/service/token_store"
	twitchAuthService "twitch_indicator/internal/service/twitch_auth"

	settingsStore "twitch_indicator/internal/settings"
)

const (
	appDirName      = "twitch-indicator"
	defaultClientID = "vrulzk2tm1ozo2c1iv5a14m1ohbill"
)

func main() {

	err := godotenv.Load()
	if err != nil {
		logrus.Debug("no .env file found")
	}

	if os.Getenv("DEBUG") == "1" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	clientID := os.Getenv("TWITCH_CLIENT_ID")
	if clientID == "" {
		clientID = defaultClientID
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		logrus.Fatalf("cannot determine config dir: %v", err)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		logrus.Fatalf("cannot determine cache dir: %v", err)
	}

	configDir := filepath.Join(userConfigDir, appDirName)
	cacheDir := filepath.Join(userCacheDir, appDirName)
	for _, dir := range []string{configDir, cacheDir} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("cannot create %s: %v", dir, err)
		}
	}

	s, err := settingsStore.NewSettings(configDir)
	if err != nil {
		logrus.Fatalf("cannot init settings: %v", err)
	}

	st := state.NewState()
	st.SetEnabledChannels(s.EnabledChannels())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stands in for the GUI toolkit main loop in this headless build.
	gui := mainloop.NewDispatcher()
	go gui.Run(ctx)

	var (
		tokenStore = tokenStoreService.NewTokenStore(configDir)
		authFlow   = twitchAuthService.NewAuthFlow(clientID, []models.Scope{models.UserReadFollows}, tokenStore)
		fClient    = fileClient.NewFileClient()
	)

	// Declared up front so the re-auth callback can reach the poller.
	var poller *streamPollerService.Poller

	twc := twitchClient.NewTwitchClient(clientID, func(authDone chan struct{}) {
		gui.Schedule(func() {
			poller.Login(authDone)
		})
	})

	// Install fresh tokens before suspended requests wake and retry.
	authFlow.OnToken = twc.SetToken

	profileImages := profileImageService.NewProfileImageService(cacheDir, twc, fClient)

	notifier, err := notificationService.NewDesktopNotifier(s, profileImages)
	if err != nil {
		logrus.Fatalf("cannot connect to notification bus: %v", err)
	}

	poller = streamPollerService.NewPoller(
		twc,
		authFlow,
		tokenStore,
		profileImages,
		notifier,
		st,
		s,
		gui,
		clockwork.NewRealClock(),
	)
	poller.OnStatus = func(msg string) {
		logrus.Warnf("indicator status: %s", msg)
	}
	poller.OnAuthFailure = func() {
		logrus.Error("authorization declined or failed, shutting down")
		cancel()
	}

	st.AddHandler(state.SlotUser, func(value interface{}) {
		if info, ok := value.(*models.ValidationInfo); ok && info != nil {
			logrus.Infof("logged in as %s", info.Login)
		}
	})
	st.AddHandler(state.SlotLiveStreams, func(value interface{}) {
		if streams, ok := value.([]models.Stream); ok {
			logrus.Infof("%d followed channels live", len(streams))
			for _, stream := range streams {
				logrus.Debugf("%s live for %s (%s)", stream.UserName,
					formater.CreateStreamDuration(stream.StartedAt),
					formater.BuildStreamURL(stream.UserLogin))
			}
		}
	})
	st.AddHandler(state.SlotEnabledChannels, func(value interface{}) {
		if enabled, ok := value.(map[string]models.ChannelState); ok {
			if err := s.SetEnabledChannels(enabled); err != nil {
				logrus.Errorf("cannot persist enabled channels: %v", err)
			}
		}
	})

	s.Watch(poller.UpdateRefreshInterval)

	logrus.Info("twitch indicator start...")
	poller.Start()

	<-ctx.Done()

	logrus.Info("shutting down...")
	if err = poller.Quit(); err != nil {
		logrus.Fatalf("shutdown failed: %v", err)
	}
	if err = notifier.Close(); err != nil {
		logrus.Errorf("cannot close notification bus: %v", err)
	}
}
