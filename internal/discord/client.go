package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("discobridge")

var (
	// ErrAuthFailed means the gateway rejected the bot token. Never retried.
	ErrAuthFailed = errors.New("discord authentication failed")
	// ErrNotReady means the gateway session is not connected yet (or dropped).
	ErrNotReady = errors.New("discord connection not ready")
	// ErrChannelNotFound means the channel id does not resolve in the state cache.
	ErrChannelNotFound = errors.New("discord channel not found")
)

const (
	connectAttempts = 5
	connectDelay    = 5 * time.Second
)

// Gateway close code sent by Discord when the identify token is invalid.
const closeCodeAuthFailed = 4004

// Client owns the gateway session and supervises its lifecycle. It is safe
// for concurrent read access from HTTP handlers once connected; handlers
// never mutate connection state.
type Client struct {
	session          *discordgo.Session
	status           atomic.Int32
	defaultChannelID string
	log              *zap.Logger

	// connect/close indirection so the retry loop is testable without a
	// live gateway.
	open     func() error
	close    func() error
	attempts int
	delay    time.Duration
}

// New creates the session and registers lifecycle handlers. It does not
// connect; call Run for that.
func New(token, defaultChannelID string, log *zap.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	c := &Client{
		session:          session,
		defaultChannelID: defaultChannelID,
		log:              log,
		open:             session.Open,
		close:            session.Close,
		attempts:         connectAttempts,
		delay:            connectDelay,
	}
	session.AddHandler(c.onReady)
	session.AddHandler(c.onResumed)
	session.AddHandler(c.onDisconnect)
	return c, nil
}

// Run connects the gateway with bounded retry and then blocks until ctx is
// cancelled. An authentication failure aborts immediately; any other
// connect error is retried at a fixed delay up to the attempt limit. After
// a successful connect, session drops are handled by discordgo's own
// resume/reconnect logic, not by re-entering this loop.
func (c *Client) Run(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		c.setStatus(StatusConnecting)
		err := c.open()
		if err == nil {
			c.setStatus(StatusReady)
			<-ctx.Done()
			c.setStatus(StatusDisconnected)
			return c.close()
		}
		if isAuthFailure(err) {
			c.setStatus(StatusFailed)
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		lastErr = err
		c.log.Warn("gateway connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.Error(err),
		)
		if attempt < c.attempts {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				c.setStatus(StatusDisconnected)
				return ctx.Err()
			}
		}
	}
	c.setStatus(StatusFailed)
	return fmt.Errorf("gateway connect failed after %d attempts: %w", c.attempts, lastErr)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

// Ready reports whether the session can serve requests.
func (c *Client) Ready() bool {
	return c.Status() == StatusReady
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
}

func isAuthFailure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == closeCodeAuthFailed
	}
	return errors.Is(err, discordgo.ErrUnauthorized)
}

func (c *Client) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.setStatus(StatusReady)
	c.log.Info("bot is online",
		zap.String("username", r.User.Username),
		zap.String("user_id", r.User.ID),
	)
	for _, guild := range r.Guilds {
		log := c.log.With(zap.String("guild_id", guild.ID))
		log.Info("connected to guild", zap.String("guild_name", guild.Name))
		if c.defaultChannelID == "" {
			continue
		}
		if ch, err := s.State.Channel(c.defaultChannelID); err == nil && ch.GuildID == guild.ID {
			log.Info("default channel found", zap.String("channel_name", ch.Name))
		} else {
			log.Warn("default channel not found in guild", zap.String("channel_id", c.defaultChannelID))
		}
	}
}

func (c *Client) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	c.setStatus(StatusReady)
	c.log.Info("gateway session resumed")
}

func (c *Client) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	c.setStatus(StatusDisconnected)
	c.log.Warn("bot has disconnected")
}

// ResolveChannel looks a channel id up in the session state cache.
func (c *Client) ResolveChannel(channelID string) (Channel, error) {
	if !c.Ready() {
		return Channel{}, ErrNotReady
	}
	ch, err := c.session.State.Channel(channelID)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return c.channelSummary(ch), nil
}

// PostableChannels lists guild text channels where the bot may send messages.
func (c *Client) PostableChannels() ([]Channel, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}
	botID := c.session.State.User.ID
	channels := []Channel{}
	for _, guild := range c.session.State.Guilds {
		for _, ch := range guild.Channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			perms, err := c.session.State.UserChannelPermissions(botID, ch.ID)
			if err != nil || perms&discordgo.PermissionSendMessages == 0 {
				continue
			}
			channels = append(channels, c.channelSummary(ch))
		}
	}
	return channels, nil
}

// RecentMessages fetches up to limit messages of a channel's history,
// newest first as Discord returns them.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if !c.Ready() {
		return nil, ErrNotReady
	}
	if _, err := c.session.State.Channel(channelID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	ctx, span := tracer.Start(ctx, "FetchChannelHistory",
		trace.WithAttributes(
			attribute.String("discord.channel_id", channelID),
			attribute.Int("discord.limit", limit),
		),
	)
	defer span.End()

	raw, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		msg := Message{
			ID:          m.ID,
			Content:     m.Content,
			Timestamp:   m.Timestamp,
			Attachments: []Attachment{},
		}
		if m.Author != nil {
			msg.Author = m.Author.Username
		}
		for _, a := range m.Attachments {
			msg.Attachments = append(msg.Attachments, Attachment{URL: a.URL, Filename: a.Filename})
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendMessage forwards a plain text message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	if !c.Ready() {
		return ErrNotReady
	}
	ctx, span := tracer.Start(ctx, "ForwardMessage",
		trace.WithAttributes(attribute.String("discord.channel_id", channelID)),
	)
	defer span.End()

	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}

// SendFile forwards a file, with optional accompanying text, to a channel.
func (c *Client) SendFile(ctx context.Context, channelID, content, filename string, r io.Reader) error {
	if !c.Ready() {
		return ErrNotReady
	}
	ctx, span := tracer.Start(ctx, "ForwardFile",
		trace.WithAttributes(
			attribute.String("discord.channel_id", channelID),
			attribute.String("discord.filename", filename),
		),
	)
	defer span.End()

	_, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Files:   []*discordgo.File{{Name: filename, Reader: r}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("forward file: %w", err)
	}
	return nil
}

func (c *Client) channelSummary(ch *discordgo.Channel) Channel {
	summary := Channel{ID: ch.ID, Name: ch.Name, GuildID: ch.GuildID}
	if guild, err := c.session.State.Guild(ch.GuildID); err == nil {
		summary.GuildName = guild.Name
	}
	return summary
}
