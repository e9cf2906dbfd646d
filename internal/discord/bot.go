// Package discord connects the bot to the gateway: the voice-state handler
// records sessions, the interaction handler answers the /voice commands.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"voicestats/internal/config"
	"voicestats/internal/database"
	"voicestats/internal/telemetry"
)

// Bot represents the Discord bot
type Bot struct {
	session    *discordgo.Session
	repository *database.Repository
	cfg        *config.Config

	// registered commands, removed again on Stop
	commands []*discordgo.ApplicationCommand
}

// New creates a new Discord bot
func New(cfg *config.Config, repository *database.Repository) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates

	bot := &Bot{
		session:    session,
		repository: repository,
		cfg:        cfg,
	}

	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.interactionCreate)

	return bot, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	appID := b.session.State.User.ID
	for _, def := range commandDefinitions() {
		cmd, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, def)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", def.Name, err)
		}
		b.commands = append(b.commands, cmd)
	}

	slog.Info("bot running",
		slog.String("user", b.session.State.User.Username),
		slog.String("component", "discord"))
	return nil
}

// Stop unregisters the commands and closes the gateway connection.
func (b *Bot) Stop() error {
	appID := b.session.State.User.ID
	for _, cmd := range b.commands {
		if err := b.session.ApplicationCommandDelete(appID, b.cfg.GuildID, cmd.ID); err != nil {
			slog.Warn("failed to unregister command",
				slog.String("command", cmd.Name),
				slog.Any("error", err),
				slog.String("component", "discord"))
		}
	}
	return b.session.Close()
}

// transition classifies a voice-state change.
type transition int

const (
	transitionNone transition = iota
	transitionJoin
	transitionLeave
	transitionSwitch
)

// classifyTransition maps (previous channel, new channel) to the logical
// voice transition. Equal non-empty channels are mute/deafen updates and
// change nothing.
func classifyTransition(before, after string) transition {
	switch {
	case before == "" && after != "":
		return transitionJoin
	case before != "" && after == "":
		return transitionLeave
	case before != after:
		return transitionSwitch
	default:
		return transitionNone
	}
}

func (b *Bot) isAFK(channelID int64) bool {
	return b.cfg.AFKChannelID != 0 && channelID == b.cfg.AFKChannelID
}

// voiceStateUpdate is the event ingestor: it turns gateway voice-state
// updates into session rows. Failures are logged and dropped, the next
// event re-synchronizes.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	before := ""
	if vs.BeforeUpdate != nil {
		before = vs.BeforeUpdate.ChannelID
	}

	tr := classifyTransition(before, vs.ChannelID)
	if tr == transitionNone {
		return
	}

	userID, err := parseSnowflake(vs.UserID)
	if err != nil {
		slog.Error("unparseable user id in voice event",
			slog.String("user", vs.UserID),
			slog.Any("error", err),
			slog.String("component", "ingest"))
		return
	}

	now := time.Now().Unix()
	ctx := context.Background()

	switch tr {
	case transitionJoin:
		channelID, err := parseSnowflake(vs.ChannelID)
		if err != nil {
			slog.Error("unparseable channel id in voice event",
				slog.String("channel", vs.ChannelID),
				slog.Any("error", err),
				slog.String("component", "ingest"))
			return
		}
		if b.isAFK(channelID) {
			// time in the AFK channel is not tracked
			telemetry.EventsIgnored.Inc()
			return
		}
		if err := b.repository.InsertSession(ctx, userID, channelID, now); err != nil {
			slog.Error("failed to record join",
				slog.Int64("user", userID),
				slog.Any("error", err),
				slog.String("component", "ingest"))
			return
		}
		telemetry.EventsJoined.Inc()
		slog.Debug("join recorded",
			slog.Int64("user", userID),
			slog.Int64("channel", channelID),
			slog.String("component", "ingest"))

	case transitionLeave:
		closed, err := b.repository.CloseOpenSession(ctx, userID, now)
		if err != nil {
			slog.Error("failed to record leave",
				slog.Int64("user", userID),
				slog.Any("error", err),
				slog.String("component", "ingest"))
			return
		}
		if !closed {
			// missed join, e.g. the user was already in voice before a restart
			slog.Info("leave with no open session, ignoring",
				slog.Int64("user", userID),
				slog.String("component", "ingest"))
			telemetry.EventsIgnored.Inc()
			return
		}
		telemetry.EventsLeft.Inc()
		slog.Debug("leave recorded",
			slog.Int64("user", userID),
			slog.String("component", "ingest"))

	case transitionSwitch:
		newChannelID, err := parseSnowflake(vs.ChannelID)
		if err != nil {
			slog.Error("unparseable channel id in voice event",
				slog.String("channel", vs.ChannelID),
				slog.Any("error", err),
				slog.String("component", "ingest"))
			return
		}
		if b.isAFK(newChannelID) {
			// moving to AFK ends counted time without opening a session
			closed, err := b.repository.CloseOpenSession(ctx, userID, now)
			if err != nil {
				slog.Error("failed to record switch to AFK",
					slog.Int64("user", userID),
					slog.Any("error", err),
					slog.String("component", "ingest"))
				return
			}
			if !closed {
				slog.Info("switch to AFK with no open session, ignoring",
					slog.Int64("user", userID),
					slog.String("component", "ingest"))
				telemetry.EventsIgnored.Inc()
				return
			}
			telemetry.EventsLeft.Inc()
			return
		}
		if err := b.repository.SwitchChannel(ctx, userID, newChannelID, now); err != nil {
			slog.Error("failed to record switch",
				slog.Int64("user", userID),
				slog.Any("error", err),
				slog.String("component", "ingest"))
			return
		}
		telemetry.EventsSwitched.Inc()
		slog.Debug("switch recorded",
			slog.Int64("user", userID),
			slog.Int64("channel", newChannelID),
			slog.String("component", "ingest"))
	}

	if n, err := b.repository.OpenSessionCount(ctx); err == nil {
		telemetry.SetOpenSessions(n)
	}
}

func parseSnowflake(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}
