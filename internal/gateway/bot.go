// Package gateway connects the bot to the chat service. It feeds member
// events into the directory, messages into the command router, and
// connection events into the lifecycle machine.
package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/commands"
	"github.com/HendryAvila/projektbot/internal/lifecycle"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/telemetry"
)

// Config holds the gateway settings.
type Config struct {
	GuildID    string
	AdminRoles []string
	JoinLink   string
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Bot owns the chat session and its event handlers.
type Bot struct {
	session *discordgo.Session
	cfg     Config
	router  *commands.Router
	members Enroller
	db      Pinger
	machine *lifecycle.Machine
	metrics *telemetry.Metrics
	log     *logging.Logger

	// ctx is the Run context; handlers derive from it.
	ctx       context.Context
	seenReady atomic.Bool
}

// NewSession opens an unconnected session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return s, nil
}

// New wires the handlers onto session.
func New(session *discordgo.Session, cfg Config, router *commands.Router, members Enroller, db Pinger,
	metrics *telemetry.Metrics, log *logging.Logger) *Bot {
	b := &Bot{
		session: session,
		cfg:     cfg,
		router:  router,
		members: members,
		db:      db,
		machine: lifecycle.New(),
		metrics: metrics,
		log:     log.Named("gateway"),
		ctx:     context.Background(),
	}
	b.machine.Observe(b.onTransition)

	session.AddHandler(b.onConnect)
	session.AddHandler(b.onReady)
	session.AddHandler(b.onResumed)
	session.AddHandler(b.onDisconnect)
	session.AddHandler(b.onMemberAdd)
	session.AddHandler(b.onMemberUpdate)
	session.AddHandler(b.onMessage)
	return b
}

// Lifecycle exposes the connection state machine.
func (b *Bot) Lifecycle() *lifecycle.Machine { return b.machine }

// Run connects and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.metrics.SetOnlineState(telemetry.StateStarting)
	if b.cfg.JoinLink != "" {
		b.log.Info(ctx, "invite link", zap.String("url", b.cfg.JoinLink))
	}

	if err := b.session.Open(); err != nil {
		b.metrics.SetOnlineState(telemetry.StateStopped)
		return fmt.Errorf("opening gateway: %w", err)
	}
	<-ctx.Done()

	b.metrics.SetOnlineState(telemetry.StateStopping)
	err := b.session.Close()
	b.metrics.SetOnlineState(telemetry.StateStopped)
	b.metrics.SetDatabaseConnected(false)
	return err
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

func (b *Bot) fire(ev lifecycle.Event) {
	if _, err := b.machine.Fire(ev); err != nil {
		b.log.Debug(b.ctx, "ignored connection event", zap.Error(err))
	}
}

func (b *Bot) onTransition(t lifecycle.Transition) {
	b.log.Info(b.ctx, "connection state changed",
		zap.Stringer("from", t.From), zap.Stringer("to", t.To), zap.Stringer("event", t.Event))

	switch t.To {
	case lifecycle.Connected:
		b.metrics.SetOnlineState(telemetry.StateOnline)
		if err := b.db.Ping(b.ctx); err != nil {
			b.log.Error(b.ctx, "record store unavailable", zap.Error(err))
			b.metrics.SetDatabaseConnected(false)
			return
		}
		b.metrics.SetDatabaseConnected(true)
	case lifecycle.Connecting, lifecycle.Resuming:
		b.metrics.SetOnlineState(telemetry.StateStarting)
	case lifecycle.Disconnected:
		b.metrics.SetOnlineState(telemetry.StateOffline)
		b.metrics.SetDatabaseConnected(false)
	}
}

func (b *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	// A reconnect after a drop tries to resume the old session first.
	if b.seenReady.Load() {
		b.fire(lifecycle.Resume)
		return
	}
	b.fire(lifecycle.Dial)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer b.recoverHandler("ready")
	b.seenReady.Store(true)
	b.fire(lifecycle.Ready)

	guilds := []string{b.cfg.GuildID}
	if b.cfg.GuildID == "" {
		guilds = guilds[:0]
		for _, g := range r.Guilds {
			guilds = append(guilds, g.ID)
		}
	}
	for _, id := range guilds {
		ctx := logging.WithGuild(b.ctx, id)
		fetch := func(after string, limit int) ([]*discordgo.Member, error) {
			return s.GuildMembers(id, after, limit, discordgo.WithContext(ctx))
		}
		if _, err := syncMembers(ctx, fetch, b.members, b.log); err != nil {
			b.log.Error(ctx, "member sync failed", zap.Error(err))
		}
	}
}

func (b *Bot) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	b.fire(lifecycle.Resumed)
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.fire(lifecycle.Drop)
}

// ─── Members ─────────────────────────────────────────────────────────────────

func (b *Bot) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	b.enroll(m.GuildID, m.Member)
}

func (b *Bot) onMemberUpdate(_ *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	b.enroll(m.GuildID, m.Member)
}

func (b *Bot) enroll(guildID string, m *discordgo.Member) {
	defer b.recoverHandler("member")
	if m == nil || m.User == nil || m.User.Bot || !b.ownGuild(guildID) {
		return
	}
	ctx := logging.WithGuild(b.ctx, guildID)
	if _, err := b.members.Enroll(ctx, m.User.ID, displayName(m)); err != nil {
		b.log.Error(ctx, "enrolling member failed", zap.String("user", m.User.ID), zap.Error(err))
	}
}

// ─── Messages ────────────────────────────────────────────────────────────────

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverHandler("message")
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || !b.ownGuild(m.GuildID) {
		return
	}

	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}
	msg := commands.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Author:    commands.User{ID: m.Author.ID, Name: name},
		Admin:     b.isAdmin(s, m),
	}

	ctx := logging.WithGuild(b.ctx, m.GuildID)
	reply, handled := b.router.Handle(ctx, msg)
	if !handled || reply == "" {
		return
	}
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk, discordgo.WithContext(ctx)); err != nil {
			b.log.Error(ctx, "sending reply failed", zap.String("channel", m.ChannelID), zap.Error(err))
			return
		}
	}
}

func (b *Bot) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Member != nil && hasAdminRole(m.Member.Roles, b.cfg.AdminRoles) {
		return true
	}
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.log.Debug(b.ctx, "permission lookup failed", zap.Error(err))
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (b *Bot) ownGuild(guildID string) bool {
	return b.cfg.GuildID == "" || b.cfg.GuildID == guildID
}

func (b *Bot) recoverHandler(event string) {
	if p := recover(); p != nil {
		b.log.Error(b.ctx, "panic in gateway handler",
			zap.String("event", event), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
	}
}
