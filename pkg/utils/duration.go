package utils

import (
	"fmt"
	"time"
)

// FormatDuration formats seconds as "Xh Ym".
func FormatDuration(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatTimestamp renders an epoch-seconds timestamp in the given location.
func FormatTimestamp(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format("2006-01-02 15:04")
}
