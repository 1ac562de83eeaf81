package bot

import (
	"context"
	"sync"
	"time"

	"banguard/internal/config"
	"banguard/internal/i18n"
	"banguard/internal/modules/admin"
	"banguard/internal/modules/detector"
	"banguard/internal/modules/notify"
	"banguard/internal/modules/punish"
	"banguard/internal/modules/suppress"
	"banguard/internal/platform"
	"banguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsMessageContent

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	platform platform.Platform
	lists    *storage.ListStore
	settings *storage.SettingsStore
	admin    *admin.Classifier
	detector *detector.Module
	suppress *suppress.Module
	punish   *punish.Module
	notify   *notify.Logger
	sweeper  *sweeper

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, lists *storage.ListStore, settings *storage.SettingsStore) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = intents

	b := newBot(cfg, logger, platform.NewDiscord(session), lists, settings)
	b.session = session
	return b, nil
}

func newBot(cfg config.Config, logger *zap.Logger, p platform.Platform, lists *storage.ListStore, settings *storage.SettingsStore) *Bot {
	suppressor := suppress.New(cfg.SuppressionLimit)
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		platform: p,
		lists:    lists,
		settings: settings,
		admin:    admin.New(settings),
		detector: detector.New(lists),
		suppress: suppressor,
		punish:   punish.New(p, settings, logger.Named("punish")),
		notify:   notify.NewLogger(p, settings, suppressor, logger.Named("notify"), cfg.Language, cfg.Notifications.EmbedColors.Detect),
	}
	b.sweeper = newSweeper(b, cfg.Sweep)
	return b
}

// Start opens the gateway, registers the slash commands and starts the sweep.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	b.logger.Info("gateway connected",
		zap.Bool("intent_guilds", intents&discordgo.IntentsGuilds != 0),
		zap.Bool("intent_members", intents&discordgo.IntentsGuildMembers != 0),
		zap.Bool("intent_message_content", intents&discordgo.IntentsMessageContent != 0))

	if err := b.registerCommands(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.sweeper.run(runCtx)
	}()
	b.logger.Info("periodic sweep started", zap.Int("interval_seconds", b.cfg.Sweep.IntervalSeconds))
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("sweep did not stop before shutdown deadline")
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg == nil || msg.Message == nil {
		return
	}
	b.handleMessage(context.Background(), msg.Message)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event == nil || event.Member == nil {
		return
	}
	b.handleJoin(context.Background(), event.Member)
}

// detection is one positive match on any path.
type detection struct {
	guildID      string
	user         *discordgo.User
	member       *discordgo.Member
	kind         string
	reason       string
	punishReason string
	content      string
}

func (b *Bot) handleJoin(ctx context.Context, member *discordgo.Member) {
	if member.User == nil || member.GuildID == "" {
		return
	}
	guild := b.guild(member.GuildID)
	if b.admin.IsAdmin(guild, member) {
		return
	}
	if !b.detector.IdentifierMatches(member.User.ID) {
		return
	}
	b.enforce(ctx, detection{
		guildID:      member.GuildID,
		user:         member.User,
		member:       member,
		kind:         notify.KindJoin,
		reason:       b.t("reason_listed_id"),
		punishReason: b.t("reason_listed_via", notify.KindLabel(b.cfg.Language, notify.KindJoin)),
	})
}

func (b *Bot) handleMessage(ctx context.Context, msg *discordgo.Message) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	guild := b.guild(msg.GuildID)
	member, err := b.memberForUser(msg.GuildID, msg.Author.ID)
	if err != nil {
		member = messageMember(msg)
		if member == nil {
			b.logger.Warn("member lookup failed, message skipped",
				zap.String("guild_id", msg.GuildID),
				zap.String("user_id", msg.Author.ID),
				zap.Error(err))
			return
		}
	}
	if member != nil && b.admin.IsAdmin(guild, member) {
		return
	}

	if b.mentionsBot(msg) && b.detector.IdentifierMatches(msg.Author.ID) {
		b.enforce(ctx, detection{
			guildID:      msg.GuildID,
			user:         msg.Author,
			member:       member,
			kind:         notify.KindMention,
			reason:       b.t("reason_listed_id"),
			punishReason: b.t("reason_listed_via", notify.KindLabel(b.cfg.Language, notify.KindMention)),
			content:      msg.Content,
		})
		b.deleteMessage(msg)
		return
	}

	fragment, ok := b.detector.TextMatches(msg.Content)
	if !ok {
		return
	}
	b.deleteMessage(msg)
	reason := b.t("reason_text", fragment)
	b.enforce(ctx, detection{
		guildID:      msg.GuildID,
		user:         msg.Author,
		member:       member,
		kind:         notify.KindText,
		reason:       reason,
		punishReason: reason,
		content:      msg.Content,
	})
	added, err := b.lists.EnsureIdentifier(msg.Author.ID)
	if err != nil {
		b.logger.Error("auto-list failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	if added {
		b.logger.Info("author added to ban list", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID))
	}
}

// enforce runs role grant, log and punishment in that order. Failures are
// logged and never stop the following steps.
func (b *Bot) enforce(ctx context.Context, d detection) {
	detectionCount.WithLabelValues(d.kind).Inc()
	b.logger.Info("detection",
		zap.String("guild_id", d.guildID),
		zap.String("user_id", d.user.ID),
		zap.String("kind", d.kind),
		zap.String("reason", d.reason))

	if d.member != nil {
		_, _ = b.punish.AssignDangerRole(ctx, d.guildID, d.member)
	}

	sent, err := b.notify.NotifyOnce(ctx, notify.Entry{
		GuildID:     d.guildID,
		SubjectID:   d.user.ID,
		SubjectName: d.user.Username,
		Reason:      d.reason,
		Kind:        d.kind,
		Content:     d.content,
	})
	switch {
	case err != nil:
		notificationCount.WithLabelValues("failed").Inc()
		b.logger.Warn("detection log failed", zap.String("guild_id", d.guildID), zap.String("user_id", d.user.ID), zap.Error(err))
	case sent:
		notificationCount.WithLabelValues("sent").Inc()
	default:
		notificationCount.WithLabelValues("skipped").Inc()
	}

	action, err := b.punish.Apply(ctx, d.guildID, d.user.ID, d.punishReason)
	result := "ok"
	if err != nil {
		result = platform.Classify(err).String()
	}
	punishmentCount.WithLabelValues(string(action.Kind), result).Inc()
}

func (b *Bot) mentionsBot(msg *discordgo.Message) bool {
	botID := b.platform.BotUserID()
	if botID == "" {
		return false
	}
	for _, user := range msg.Mentions {
		if user != nil && user.ID == botID {
			return true
		}
	}
	return false
}

func (b *Bot) deleteMessage(msg *discordgo.Message) {
	if err := b.platform.DeleteMessage(msg.ChannelID, msg.ID); err != nil {
		b.logger.Debug("message delete failed", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID), zap.Error(err))
	}
}

func (b *Bot) guild(guildID string) *discordgo.Guild {
	guild, err := b.platform.Guild(guildID)
	if err != nil {
		b.logger.Debug("guild lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil
	}
	return guild
}

// memberForUser returns a copy of the member, or nil without an error when
// the user is not a member.
func (b *Bot) memberForUser(guildID, userID string) (*discordgo.Member, error) {
	member, err := b.platform.Member(guildID, userID)
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	copied := *member
	if copied.User == nil {
		copied.User = &discordgo.User{ID: userID}
	}
	return &copied, nil
}

// messageMember builds a member from the partial member the gateway attaches
// to guild messages.
func messageMember(msg *discordgo.Message) *discordgo.Member {
	if msg.Member == nil {
		return nil
	}
	copied := *msg.Member
	copied.User = msg.Author
	if copied.GuildID == "" {
		copied.GuildID = msg.GuildID
	}
	return &copied
}

func (b *Bot) t(key string, args ...any) string {
	return i18n.T(b.cfg.Language, key, args...)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
