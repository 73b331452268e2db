package profile_image

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	fileClient "twitch_indicator/internal/client/file"
	twitchClient "twitch_indicator/internal/client/twitch-client"
)

const (
	// Cached images younger than this are not refreshed.
	imageMaxAge = 3 * 24 * time.Hour

	regularVariant = "150x150"
	iconVariant    = "32x32"
	iconSuffix     = "_icon"
)

var sizeRe = regexp.MustCompile(`-\d+x\d+`)

// ProfileImageService keeps per-broadcaster avatar images cached on disk,
// one regular and one icon-sized variant per user id.
type ProfileImageService struct {
	cacheDir     string
	twitchClient *twitchClient.TwitchClient
	fClient      *fileClient.FileClient
}

func NewProfileImageService(cacheDir string, twc *twitchClient.TwitchClient, fc *fileClient.FileClient) *ProfileImageService {
	return &ProfileImageService{
		cacheDir:     cacheDir,
		twitchClient: twc,
		fClient:      fc,
	}
}

// CachePath returns the regular-variant image path for a broadcaster id.
func (pis *ProfileImageService) CachePath(userID string) string {
	return filepath.Join(pis.cacheDir, userID)
}

// IconCachePath returns the icon-variant image path for a broadcaster id.
func (pis *ProfileImageService) IconCachePath(userID string) string {
	return filepath.Join(pis.cacheDir, userID+iconSuffix)
}

// EnsureFresh downloads profile images for the given broadcasters, skipping
// any whose cached copy is younger than the freshness window. A failed image
// download is logged and skipped, never fatal for the poll cycle.
func (pis *ProfileImageService) EnsureFresh(ctx context.Context, userIDs []string) {

	stale := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if pis.isStale(userID) {
			stale = append(stale, userID)
		}
	}

	if len(stale) == 0 {
		return
	}

	usersInfo, err := pis.twitchClient.GetUsersInfo(ctx, stale)
	if err != nil {
		logrus.Errorf("could not fetch profile image urls: %v", err)
		return
	}

	for _, userInfo := range usersInfo {
		if userInfo.ProfileImageUrl == "" {
			continue
		}

		pis.download(ctx, userInfo.ProfileImageUrl, regularVariant, pis.CachePath(userInfo.UserID))
		pis.download(ctx, userInfo.ProfileImageUrl, iconVariant, pis.IconCachePath(userInfo.UserID))
	}
}

// isStale treats a missing file identically to an old one.
func (pis *ProfileImageService) isStale(userID string) bool {

	info, err := os.Stat(pis.CachePath(userID))
	if err != nil {
		return true
	}

	return time.Since(info.ModTime()) > imageMaxAge
}

func (pis *ProfileImageService) download(ctx context.Context, profileImageURL, variant, fileName string) {

	variantURL := sizeRe.ReplaceAllString(profileImageURL, "-"+variant)

	if err := pis.fClient.DownloadFile(ctx, variantURL, fileName); err != nil {
		logrus.Errorf("could not download profile image %s: %v", variantURL, err)
		return
	}

	logrus.Debugf("saved profile image %s", fileName)
}
