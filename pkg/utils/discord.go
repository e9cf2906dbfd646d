package utils

import (
	"fmt"
	"strings"
)

// FormatUserMention formats a user ID as a Discord mention
func FormatUserMention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}

// FormatChannelMention formats a channel ID as a Discord channel mention
func FormatChannelMention(channelID int64) string {
	return fmt.Sprintf("<#%d>", channelID)
}

// FormatLeaderboardEntry formats a leaderboard entry with rank, mention, and duration
func FormatLeaderboardEntry(rank int, mention, duration string) string {
	medal := ""
	switch rank {
	case 1:
		medal = "🥇"
	case 2:
		medal = "🥈"
	case 3:
		medal = "🥉"
	default:
		medal = fmt.Sprintf("%d.", rank)
	}

	return fmt.Sprintf("%s %s - %s", medal, mention, duration)
}

// RenderBars renders labeled values as a monospace bar chart, one row per
// label, bars scaled to the largest value. Used for the heatmap and weekday
// reports where no per-user breakdown is shown.
func RenderBars(labels []string, values []int64, width int) string {
	var max int64
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	for i, label := range labels {
		bar := 0
		if max > 0 {
			bar = int(values[i] * int64(width) / max)
		}
		if values[i] > 0 && bar == 0 {
			bar = 1
		}
		sb.WriteString(fmt.Sprintf("%-3s %-*s %s\n", label, width, strings.Repeat("█", bar), FormatDuration(values[i])))
	}
	sb.WriteString("```")
	return sb.String()
}
