package formater

import (
	"fmt"
)

const twitchWWWSchemeHost = "https://www.twitch.tv"

// FormatViewerCount shortens large viewer counts for notification bodies.
func FormatViewerCount(count uint64) string {
	if count > 1000 {
		return fmt.Sprintf("%d K", (count+500)/1000)
	}

	return fmt.Sprintf("%d", count)
}

// BuildStreamURL builds a channel URL from the broadcaster login.
func BuildStreamURL(userLogin string) string {
	return fmt.Sprintf("%s/%s", twitchWWWSchemeHost, userLogin)
}
