package stream_poller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	twitchClient "twitch_indicator/internal/client/twitch-client"
	"twitch_indicator/internal/mainloop"
	"twitch_indicator/internal/models"
	"twitch_indicator/internal/service/notification"
	"twitch_indicator/internal/service/profile_image"
	"twitch_indicator/internal/service/token_store"
	"twitch_indicator/internal/service/twitch_auth"
	"twitch_indicator/internal/settings"
	"twitch_indicator/internal/state"
)

const (
	// The platform requires hourly token revalidation.
	tokenValidationInterval = time.Hour

	shutdownTimeout = 5 * time.Second
	taskQueueSize   = 16
)

// Poller is the orchestrator. It runs all network work on a single
// dedicated goroutine so poll cycles are serialized and never touch the GUI
// thread; results are published through the shared state and the main loop
// dispatcher.
type Poller struct {
	twitchClient  *twitchClient.TwitchClient
	authFlow      *twitch_auth.AuthFlow
	tokenStore    *token_store.TokenStore
	profileImages *profile_image.ProfileImageService
	notifier      notification.Notifier
	st            *state.State
	settings      *settings.Settings
	gui           *mainloop.Dispatcher
	clock         clockwork.Clock

	// OnStatus surfaces non-fatal poll failures as a user-visible status.
	// Invoked on the GUI thread. Optional, set before Start.
	OnStatus func(msg string)

	// OnAuthFailure is invoked on the GUI thread when an interactive
	// authorization attempt fails or is declined. Optional, set before
	// Start.
	OnAuthFailure func()

	tasks      chan func(ctx context.Context)
	intervalCh chan time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	quitOnce  sync.Once

	rec *reconciler
}

func NewPoller(
	twc *twitchClient.TwitchClient,
	authFlow *twitch_auth.AuthFlow,
	tokenStore *token_store.TokenStore,
	profileImages *profile_image.ProfileImageService,
	notifier notification.Notifier,
	st *state.State,
	s *settings.Settings,
	gui *mainloop.Dispatcher,
	clock clockwork.Clock,
) *Poller {
	return &Poller{
		twitchClient:  twc,
		authFlow:      authFlow,
		tokenStore:    tokenStore,
		profileImages: profileImages,
		notifier:      notifier,
		st:            st,
		settings:      s,
		gui:           gui,
		clock:         clock,
		tasks:         make(chan func(ctx context.Context), taskQueueSize),
		intervalCh:    make(chan time.Duration),
		done:          make(chan struct{}),
		rec:           newReconciler(),
	}
}

// Start launches the background loop. The first poll cycle runs
// immediately.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		p.ctx, p.cancel = context.WithCancel(context.Background())
		go p.loop(p.ctx)
	})
}

// Quit cancels all background work, waits for the loop to drain within a
// bounded timeout and closes the HTTP session. A loop that fails to stop in
// time indicates a startup-sequencing bug and is reported instead of
// hanging the process.
func (p *Poller) Quit() error {

	p.quitOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})

	if p.cancel == nil {
		return nil
	}

	select {
	case <-p.done:
	case <-time.After(shutdownTimeout):
		return errors.New("stream poller did not shut down in time")
	}

	p.twitchClient.Close()

	return nil
}

// Login runs one interactive authorization attempt. It runs on its own
// goroutine because the poll loop may itself be suspended waiting for this
// flow to finish. authDone is released by the flow exactly once.
func (p *Poller) Login(authDone chan struct{}) {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		token, err := p.authFlow.AcquireToken(ctx, authDone)
		if err != nil {
			if errors.Is(err, twitch_auth.ErrFlowInProgress) {
				logrus.Debug("authorization already in progress")
				return
			}

			logrus.Errorf("authorization failed: %v", err)
			if p.OnAuthFailure != nil {
				p.gui.Schedule(p.OnAuthFailure)
			}
			return
		}

		p.twitchClient.SetToken(token)
		logrus.Info("authorization successful")
	}()
}

// Logout drops the credential, the caches and all published data.
func (p *Poller) Logout() {
	p.schedule(func(ctx context.Context) {
		logrus.Info("logging out")

		p.twitchClient.InvalidateToken()
		p.twitchClient.ClearCache()

		if err := p.tokenStore.Remove(); err != nil {
			logrus.Errorf("could not remove token file: %v", err)
		}

		p.rec.reset()
		p.st.SetUser(nil)
		p.st.SetFollowedChannels(nil)
		p.st.SetLiveStreams(nil)
		p.st.SetFirstRun(true)
	})
}

// RefreshFollowedChannels re-fetches the follow list and the live streams
// on user request.
func (p *Poller) RefreshFollowedChannels() {
	p.schedule(func(ctx context.Context) {
		user := p.st.User()
		if user == nil {
			p.poll(ctx)
			return
		}

		p.refreshFollows(ctx, user.UserId)
		p.refreshStreams(ctx)
	})
}

// UpdateRefreshInterval retunes the periodic poll timer. Safe to call from
// any thread.
func (p *Poller) UpdateRefreshInterval(interval time.Duration) {
	select {
	case p.intervalCh <- interval:
	case <-p.done:
	}
}

func (p *Poller) schedule(task func(ctx context.Context)) {
	select {
	case p.tasks <- task:
	case <-p.done:
		logrus.Warn("stream poller stopped, dropping task")
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	logrus.Info("starting stream poller")

	interval := p.settings.RefreshInterval()
	refresh := p.clock.NewTimer(interval)
	defer refresh.Stop()

	validate := p.clock.NewTicker(tokenValidationInterval)
	defer validate.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			logrus.Info("stopping stream poller")
			return

		case task := <-p.tasks:
			task(ctx)

		case interval = <-p.intervalCh:
			// Swap the timer in place so two competing timers never
			// exist.
			if !refresh.Stop() {
				select {
				case <-refresh.Chan():
				default:
				}
			}
			refresh.Reset(interval)
			logrus.Infof("poll interval set to %s", interval)

		case <-refresh.Chan():
			p.poll(ctx)
			refresh.Reset(interval)

		case <-validate.Chan():
			p.revalidate(ctx)
		}
	}
}

// poll runs one cycle. Missing session pieces, the validated user and the
// follow list, are recovered first, so a cycle that failed partway heals on
// a later tick.
func (p *Poller) poll(ctx context.Context) {

	user := p.st.User()
	if user == nil {
		user = p.restoreSession(ctx)
		if user == nil {
			return
		}
	}

	if p.st.FollowedChannels() == nil {
		p.refreshFollows(ctx, user.UserId)
	}

	p.refreshStreams(ctx)
}

// restoreSession installs the stored token, validates it and publishes the
// resulting user.
func (p *Poller) restoreSession(ctx context.Context) *models.ValidationInfo {

	token, err := p.tokenStore.Restore()
	if err != nil {
		logrus.Errorf("could not restore token: %v", err)
	}
	if token != "" {
		p.twitchClient.SetToken(token)
	}

	info, err := p.twitchClient.ValidateToken(ctx)
	if err != nil {
		p.reportFailure("Cannot validate Twitch credentials", err)
		return nil
	}
	p.st.SetUser(info)

	return info
}

func (p *Poller) refreshFollows(ctx context.Context, userID string) {

	channels, err := p.twitchClient.FetchFollowedChannels(ctx, userID)
	if err != nil {
		p.reportFailure("Cannot retrieve channel list from Twitch", err)
		return
	}

	logrus.Debugf("fetched %d followed channels", len(channels))
	p.st.SetFollowedChannels(channels)
}

// refreshStreams runs one poll cycle: fetch the live snapshot, freshen
// avatars, compute the newly-live diff and publish.
func (p *Poller) refreshStreams(ctx context.Context) {

	user := p.st.User()
	if user == nil {
		logrus.Debug("no validated user, skipping stream refresh")
		return
	}

	streams, err := p.twitchClient.FetchFollowedStreams(ctx, user.UserId)
	if err != nil {
		p.reportFailure("Cannot retrieve live streams from Twitch", err)
		return
	}
	logrus.Debugf("fetched %d live streams", len(streams))

	userIDs := make([]string, 0, len(streams))
	for i := range streams {
		userIDs = append(userIDs, streams[i].UserId)

		// The API occasionally omits the game name and, on stale
		// records, the display name.
		if streams[i].GameName == "" && streams[i].GameId != "" {
			if gameInfo, gameErr := p.twitchClient.GetGameInfo(ctx, streams[i].GameId); gameErr == nil {
				streams[i].GameName = gameInfo.Name
			}
		}
		if streams[i].UserName == "" {
			if userInfo, userErr := p.twitchClient.GetUserInfo(ctx, streams[i].UserId); userErr == nil {
				streams[i].UserName = userInfo.DisplayName
			}
		}
	}

	p.profileImages.EnsureFresh(ctx, userIDs)

	firstRun := p.st.FirstRun()
	notifyList := p.rec.diff(streams, p.st.EnabledChannels(), firstRun)

	p.st.SetLiveStreams(streams)

	// Snapshots after the first published one are eligible for
	// notifications.
	if firstRun {
		p.st.SetFirstRun(false)
	}

	if len(notifyList) > 0 && p.settings.GetBoolean(settings.KeyEnableNotifications) {
		p.gui.Schedule(func() {
			p.notifier.Notify(notifyList)
		})
	}
}

func (p *Poller) revalidate(ctx context.Context) {

	info, err := p.twitchClient.ValidateToken(ctx)
	if err != nil {
		p.reportFailure("Cannot validate Twitch credentials", err)
		return
	}

	logrus.Debugf("token validated for %s, expires in %ds", info.Login, info.ExpiresIn)
	p.st.SetUser(info)
}

// reportFailure logs a poll failure and surfaces it as a non-fatal status.
// The periodic timer keeps running, the next tick retries.
func (p *Poller) reportFailure(msg string, err error) {

	if errors.Is(err, context.Canceled) {
		return
	}

	logrus.Errorf("%s: %v", msg, err)

	if p.OnStatus != nil {
		p.gui.Schedule(func() {
			p.OnStatus(msg)
		})
	}
}
