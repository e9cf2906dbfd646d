package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"voicestats/internal/stats"
	"voicestats/internal/telemetry"
	"voicestats/pkg/utils"
)

const (
	defaultDays  = 7
	maxDays      = 365
	defaultLimit = 5
	maxLimit     = 20
	topSize      = 10
	barWidth     = 20

	errGeneric = "Something went wrong, please try again."
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func daysOption(min, max float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "days",
		Description: fmt.Sprintf("Window in days (default %d)", defaultDays),
		MinValue:    &min,
		MaxValue:    max,
	}
}

func publicOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "public",
		Description: "Show the response to everyone instead of only you",
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "voice",
			Description: "Voice activity statistics",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "report",
					Description: "Your voice time in the last days",
					Options:     []*discordgo.ApplicationCommandOption{daysOption(1, maxDays), publicOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "total",
					Description: "Your lifetime voice time",
					Options:     []*discordgo.ApplicationCommandOption{publicOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "current",
					Description: "Who is in voice right now",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "top",
					Description: "Top users by voice time",
					Options:     []*discordgo.ApplicationCommandOption{daysOption(1, maxDays), publicOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "heatmap",
					Description: "Voice activity by hour of day",
					Options:     []*discordgo.ApplicationCommandOption{daysOption(1, maxDays), publicOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "weekday",
					Description: "Voice activity by weekday",
					Options:     []*discordgo.ApplicationCommandOption{daysOption(1, maxDays), publicOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Your recent voice sessions",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "limit",
							Description: fmt.Sprintf("Number of sessions (default %d)", defaultLimit),
						},
						publicOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel-top",
					Description: "Top users by voice time in one channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Voice channel",
							Required:     true,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
						},
						daysOption(1, maxDays),
						publicOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channels-top",
					Description: "Top voice channels by total time",
					Options:     []*discordgo.ApplicationCommandOption{daysOption(1, maxDays), publicOption()},
				},
			},
		},
	}
}

// commandParams are the parsed, validated options shared by the subcommands.
type commandParams struct {
	days   int64
	limit  int64
	public bool
}

// parseParams validates days/limit/public from a subcommand's options. The
// returned message is a user-visible rejection; empty means valid.
func parseParams(opts []*discordgo.ApplicationCommandInteractionDataOption) (commandParams, string) {
	p := commandParams{days: defaultDays, limit: defaultLimit}
	for _, opt := range opts {
		switch opt.Name {
		case "days":
			p.days = opt.IntValue()
		case "limit":
			p.limit = opt.IntValue()
		case "public":
			p.public = opt.BoolValue()
		}
	}
	if p.days < 1 || p.days > maxDays {
		return p, fmt.Sprintf("`days` must be between 1 and %d.", maxDays)
	}
	if p.limit < 1 || p.limit > maxLimit {
		return p, fmt.Sprintf("`limit` must be between 1 and %d.", maxLimit)
	}
	return p, ""
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "voice" || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	params, rejection := parseParams(sub.Options)
	if rejection != "" {
		b.respond(s, i, rejection, false)
		return
	}

	user, err := parseSnowflake(interactionUserID(i))
	if err != nil {
		slog.Error("unparseable invoker id",
			slog.Any("error", err),
			slog.String("component", "commands"))
		b.respond(s, i, errGeneric, false)
		return
	}

	ctx := context.Background()
	now := time.Now().Unix()
	since := now - params.days*86400

	var content string
	var storeErr error

	switch sub.Name {
	case "report":
		content, storeErr = b.reportMessage(ctx, user, params.days, since, now)
	case "total":
		content, storeErr = b.totalMessage(ctx, user, now)
	case "current":
		content, storeErr = b.currentMessage(ctx, now)
		params.public = true
	case "top":
		content, storeErr = b.topMessage(ctx, params.days, since, now)
	case "heatmap":
		content, storeErr = b.heatmapMessage(ctx, params.days, since, now)
	case "weekday":
		content, storeErr = b.weekdayMessage(ctx, params.days, since, now)
	case "history":
		content, storeErr = b.historyMessage(ctx, user, int(params.limit), now)
	case "channel-top":
		content, storeErr = b.channelTopMessage(ctx, sub.Options, params.days, since, now)
	case "channels-top":
		content, storeErr = b.channelsTopMessage(ctx, params.days, since, now)
	default:
		return
	}

	if storeErr != nil {
		slog.Error("command failed",
			slog.String("command", sub.Name),
			slog.Any("error", storeErr),
			slog.String("component", "commands"))
		telemetry.CommandErrors.Inc()
		b.respond(s, i, errGeneric, false)
		return
	}

	telemetry.CommandsHandled.Inc()
	b.respond(s, i, content, params.public)
}

func (b *Bot) reportMessage(ctx context.Context, user, days, since, now int64) (string, error) {
	total, err := b.repository.UserWindowTotal(ctx, user, since, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🎧 %s: last %dd **%s**",
		utils.FormatUserMention(user), days, utils.FormatDuration(total)), nil
}

func (b *Bot) totalMessage(ctx context.Context, user, now int64) (string, error) {
	total, err := b.repository.UserTotal(ctx, user, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 %s: lifetime **%s**",
		utils.FormatUserMention(user), utils.FormatDuration(total)), nil
}

func (b *Bot) currentMessage(ctx context.Context, now int64) (string, error) {
	sessions, err := b.repository.OpenSessions(ctx)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "No one is in voice right now.", nil
	}

	// rows arrive ordered by channel, one output line per channel
	var lines []string
	var members []string
	current := sessions[0].ChannelID
	flush := func() {
		lines = append(lines, fmt.Sprintf("🔊 %s: %s",
			utils.FormatChannelMention(current), strings.Join(members, ", ")))
	}
	for _, s := range sessions {
		if s.ChannelID != current {
			flush()
			current = s.ChannelID
			members = nil
		}
		members = append(members, fmt.Sprintf("%s (%s)",
			utils.FormatUserMention(s.UserID), utils.FormatDuration(s.Duration(now))))
	}
	flush()
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) topMessage(ctx context.Context, days, since, now int64) (string, error) {
	totals, err := b.repository.TopUsers(ctx, since, now, topSize)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return fmt.Sprintf("No voice activity in the last %dd.", days), nil
	}
	var lines []string
	for i, t := range totals {
		lines = append(lines, utils.FormatLeaderboardEntry(i+1,
			utils.FormatUserMention(t.UserID), utils.FormatDuration(t.TotalSeconds)))
	}
	return fmt.Sprintf("**Top voice time (last %dd):**\n%s", days, strings.Join(lines, "\n")), nil
}

func (b *Bot) heatmapMessage(ctx context.Context, days, since, now int64) (string, error) {
	ivs, err := b.overlappingIntervals(ctx, since, now)
	if err != nil {
		return "", err
	}
	buckets := stats.AccumulateHours(ivs, stats.Interval{Start: since, End: now}, b.cfg.Location)

	labels := make([]string, 24)
	values := make([]int64, 24)
	for h := range buckets {
		labels[h] = fmt.Sprintf("%02d", h)
		values[h] = buckets[h]
	}
	return fmt.Sprintf("**Voice activity by hour (last %dd, %s):**\n%s",
		days, b.cfg.Location, utils.RenderBars(labels, values, barWidth)), nil
}

func (b *Bot) weekdayMessage(ctx context.Context, days, since, now int64) (string, error) {
	ivs, err := b.overlappingIntervals(ctx, since, now)
	if err != nil {
		return "", err
	}
	buckets := stats.AccumulateWeekdays(ivs, stats.Interval{Start: since, End: now}, b.cfg.Location)

	labels := make([]string, 7)
	values := make([]int64, 7)
	for d := range buckets {
		labels[d] = weekdayLabels[d]
		values[d] = buckets[d]
	}
	return fmt.Sprintf("**Voice activity by weekday (last %dd, %s):**\n%s",
		days, b.cfg.Location, utils.RenderBars(labels, values, barWidth)), nil
}

func (b *Bot) overlappingIntervals(ctx context.Context, since, now int64) ([]stats.Interval, error) {
	sessions, err := b.repository.OverlappingSessions(ctx, since, now)
	if err != nil {
		return nil, err
	}
	ivs := make([]stats.Interval, 0, len(sessions))
	for _, s := range sessions {
		end := now
		if !s.Open() {
			end = *s.LeftTS
		}
		ivs = append(ivs, stats.Interval{Start: s.JoinedTS, End: end})
	}
	return ivs, nil
}

func (b *Bot) historyMessage(ctx context.Context, user int64, limit int, now int64) (string, error) {
	sessions, err := b.repository.UserSessions(ctx, user, limit)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "No sessions found.", nil
	}
	var lines []string
	for _, s := range sessions {
		line := fmt.Sprintf("• %s — %s (%s)",
			utils.FormatChannelMention(s.ChannelID),
			utils.FormatTimestamp(s.JoinedTS, b.cfg.Location),
			utils.FormatDuration(s.Duration(now)))
		if s.Open() {
			line += " *(ongoing)*"
		}
		lines = append(lines, line)
	}
	return "📜 Your recent sessions:\n" + strings.Join(lines, "\n"), nil
}

func (b *Bot) channelTopMessage(ctx context.Context, opts []*discordgo.ApplicationCommandInteractionDataOption, days, since, now int64) (string, error) {
	var channel int64
	for _, opt := range opts {
		if opt.Name == "channel" {
			id, err := parseSnowflake(opt.ChannelValue(nil).ID)
			if err != nil {
				return "", fmt.Errorf("failed to parse channel option: %w", err)
			}
			channel = id
		}
	}
	if b.isAFK(channel) {
		return fmt.Sprintf("%s is the AFK channel and excluded from stats.",
			utils.FormatChannelMention(channel)), nil
	}

	totals, err := b.repository.TopUsersInChannel(ctx, channel, since, now, topSize)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return fmt.Sprintf("No activity in %s in the last %dd.",
			utils.FormatChannelMention(channel), days), nil
	}
	var lines []string
	for i, t := range totals {
		lines = append(lines, utils.FormatLeaderboardEntry(i+1,
			utils.FormatUserMention(t.UserID), utils.FormatDuration(t.TotalSeconds)))
	}
	return fmt.Sprintf("**Top voice in %s (last %dd):**\n%s",
		utils.FormatChannelMention(channel), days, strings.Join(lines, "\n")), nil
}

func (b *Bot) channelsTopMessage(ctx context.Context, days, since, now int64) (string, error) {
	totals, err := b.repository.TopChannels(ctx, since, now, topSize)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return fmt.Sprintf("No voice activity in the last %dd.", days), nil
	}
	var lines []string
	for i, t := range totals {
		lines = append(lines, utils.FormatLeaderboardEntry(i+1,
			utils.FormatChannelMention(t.ChannelID), utils.FormatDuration(t.TotalSeconds)))
	}
	return fmt.Sprintf("**Top channels (last %dd):**\n%s", days, strings.Join(lines, "\n")), nil
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, public bool) {
	var flags discordgo.MessageFlags
	if !public {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		slog.Error("failed to respond to interaction",
			slog.Any("error", err),
			slog.String("component", "commands"))
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
