package formater

import (
	"fmt"
	"time"
)

func CreateStreamDuration(startedAt time.Time) string {

	streamDuration := time.Since(startedAt)
	hours := streamDuration / time.Hour
	streamDuration = streamDuration % time.Hour
	minutes := streamDuration / time.Minute
	streamDuration = streamDuration % time.Minute
	seconds := streamDuration / time.Second
	streamDurationStr := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)

	return streamDurationStr
}
