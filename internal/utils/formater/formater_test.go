package formater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatViewerCount(t *testing.T) {
	cases := []struct {
		count uint64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1000"},
		{1001, "1 K"},
		{1500, "2 K"},
		{43210, "43 K"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, FormatViewerCount(c.count), "count=%d", c.count)
	}
}

func TestBuildStreamURL(t *testing.T) {
	assert.Equal(t, "https://www.twitch.tv/somestreamer", BuildStreamURL("somestreamer"))
}

func TestCreateStreamDuration(t *testing.T) {
	startedAt := time.Now().Add(-(time.Hour + 2*time.Minute + 3*time.Second))

	assert.Regexp(t, `^01:02:0[34]$`, CreateStreamDuration(startedAt))
}
