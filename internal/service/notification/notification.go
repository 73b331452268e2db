package notification

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"twitch_indicator/internal/models"
	"twitch_indicator/internal/service/profile_image"
	"twitch_indicator/internal/settings"
	"twitch_indicator/internal/utils/formater"
)

const (
	appName = "Twitch Indicator"

	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"

	// Let the desktop environment pick the expiry.
	expireDefault = int32(-1)
)

// Notifier consumes the newly-live events computed by the poll loop.
type Notifier interface {
	Notify(streams []models.Stream)
}

// DesktopNotifier shows "just went LIVE" desktop notifications over the
// freedesktop notification bus, the way libnotify-based applets do.
type DesktopNotifier struct {
	settings      *settings.Settings
	profileImages *profile_image.ProfileImageService
	conn          *dbus.Conn
}

func NewDesktopNotifier(s *settings.Settings, pis *profile_image.ProfileImageService) (*DesktopNotifier, error) {

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}

	return &DesktopNotifier{
		settings:      s,
		profileImages: pis,
		conn:          conn,
	}, nil
}

func (dn *DesktopNotifier) Close() error {
	return dn.conn.Close()
}

// Notify shows one notification per newly-live stream. Failures are logged
// and skipped, a broken notification daemon must not affect polling.
func (dn *DesktopNotifier) Notify(streams []models.Stream) {

	showGame := dn.settings.GetBoolean(settings.KeyShowGamePlaying)
	showViewers := dn.settings.GetBoolean(settings.KeyShowViewerCount)

	for _, stream := range streams {
		summary, body := FormatNotification(stream, showGame, showViewers)

		icon := dn.profileImages.CachePath(stream.UserId)

		obj := dn.conn.Object(notificationsDest, dbus.ObjectPath(notificationsPath))
		call := obj.Call(notificationsDest+".Notify", 0,
			appName,
			uint32(0),
			icon,
			summary,
			body,
			[]string{},
			map[string]dbus.Variant{
				"category": dbus.MakeVariant("presence.online"),
			},
			expireDefault,
		)

		if call.Err != nil {
			logrus.Errorf("could not show notification for %s: %v", stream.UserLogin, call.Err)
			continue
		}

		logrus.Debugf("notified for %s (%s)", stream.UserName, formater.BuildStreamURL(stream.UserLogin))
	}
}

// FormatNotification builds the summary and body honoring the display
// toggles.
func FormatNotification(stream models.Stream, showGame, showViewers bool) (summary, body string) {

	summary = fmt.Sprintf("%s just went LIVE!", stream.UserName)
	body = stream.Title

	if showGame && stream.GameName != "" {
		body += fmt.Sprintf("\nPlaying: %s", stream.GameName)
	}
	if showViewers {
		body += fmt.Sprintf("\nViewers: %s", formater.FormatViewerCount(stream.ViewerCount))
	}

	return summary, body
}
