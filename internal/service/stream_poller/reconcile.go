package stream_poller

import (
	"twitch_indicator/internal/models"
)

// reconciler detects offline-to-live transitions between successive live
// stream snapshots. It is owned by the poller goroutine and never shared.
type reconciler struct {
	prevLiveUserIds map[string]struct{}
}

func newReconciler() *reconciler {
	return &reconciler{
		prevLiveUserIds: make(map[string]struct{}),
	}
}

// diff returns the streams that went live since the previous snapshot,
// honoring per-channel enablement. The previous set is updated
// unconditionally, even on the suppressed first run, so re-enabling
// notifications later cannot replay stale transitions.
func (r *reconciler) diff(streams []models.Stream, enabled map[string]models.ChannelState, firstRun bool) []models.Stream {

	var newlyLive []models.Stream

	if !firstRun {
		for _, stream := range streams {
			if _, wasLive := r.prevLiveUserIds[stream.UserId]; wasLive {
				continue
			}

			channelState, ok := enabled[stream.UserId]
			if !ok {
				channelState = models.DefaultChannelState
			}
			if channelState == models.ChannelDisabled {
				continue
			}

			newlyLive = append(newlyLive, stream)
		}
	}

	prev := make(map[string]struct{}, len(streams))
	for _, stream := range streams {
		prev[stream.UserId] = struct{}{}
	}
	r.prevLiveUserIds = prev

	return newlyLive
}

func (r *reconciler) reset() {
	r.prevLiveUserIds = make(map[string]struct{})
}
