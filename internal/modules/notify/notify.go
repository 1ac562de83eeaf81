package notify

import (
	"context"
	"time"
	"unicode/utf8"

	"banguard/internal/i18n"
	"banguard/internal/modules/suppress"
	"banguard/internal/platform"
	"banguard/internal/storage"
	"banguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Detection kinds, also part of the suppression key.
const (
	KindJoin     = "join-detect"
	KindMention  = "mention-detect"
	KindText     = "text-detect"
	KindPeriodic = "periodic-detect"
)

const maxContentRunes = 1000

var kindKeys = map[string]string{
	KindJoin:     "kind_join",
	KindMention:  "kind_mention",
	KindText:     "kind_text",
	KindPeriodic: "kind_periodic",
}

type Entry struct {
	GuildID     string
	SubjectID   string
	SubjectName string
	Reason      string
	Kind        string
	Content     string
}

// Logger posts detection embeds to the configured log channel, at most once
// per (guild, subject, kind) until the suppression set is cleared.
type Logger struct {
	platform platform.Platform
	settings *storage.SettingsStore
	suppress *suppress.Module
	logger   *zap.Logger
	lang     string
	color    int
	clock    utils.Clock
}

func NewLogger(p platform.Platform, settings *storage.SettingsStore, suppressor *suppress.Module, logger *zap.Logger, lang string, color int) *Logger {
	return &Logger{
		platform: p,
		settings: settings,
		suppress: suppressor,
		logger:   logger,
		lang:     lang,
		color:    color,
		clock:    utils.RealClock{},
	}
}

func (l *Logger) WithClock(clock utils.Clock) {
	l.clock = clock
}

func KindLabel(lang, kind string) string {
	if key, ok := kindKeys[kind]; ok {
		return i18n.T(lang, key)
	}
	return kind
}

// NotifyOnce reports whether an embed was sent. A missing log channel is not
// an error; a failed send releases the suppression key and returns the error.
func (l *Logger) NotifyOnce(ctx context.Context, entry Entry) (bool, error) {
	if !l.suppress.ShouldLog(entry.GuildID, entry.SubjectID, entry.Kind) {
		return false, nil
	}
	release := func() { l.suppress.Forget(entry.GuildID, entry.SubjectID, entry.Kind) }

	if err := ctx.Err(); err != nil {
		release()
		return false, err
	}

	channelID := l.settings.Snapshot().LogChannelID.String()
	if channelID == "" {
		release()
		return false, nil
	}
	channel, err := l.platform.Channel(channelID)
	if err != nil {
		release()
		if platform.IsNotFound(err) {
			l.logger.Warn("log channel not found", zap.String("channel_id", channelID))
			return false, nil
		}
		return false, err
	}
	if channel.GuildID != entry.GuildID {
		release()
		return false, nil
	}

	if err := l.platform.SendEmbed(channel.ID, l.buildEmbed(entry)); err != nil {
		release()
		return false, err
	}
	l.logger.Info("detection logged",
		zap.String("guild_id", entry.GuildID),
		zap.String("user_id", entry.SubjectID),
		zap.String("kind", entry.Kind))
	return true, nil
}

func (l *Logger) buildEmbed(entry Entry) *discordgo.MessageEmbed {
	label := KindLabel(l.lang, entry.Kind)
	subject := "<@" + entry.SubjectID + ">"
	if entry.SubjectName != "" {
		subject += " (" + entry.SubjectName + ")"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: i18n.T(l.lang, "field_user"), Value: subject, Inline: false},
		{Name: i18n.T(l.lang, "field_user_id"), Value: entry.SubjectID, Inline: false},
		{Name: i18n.T(l.lang, "field_reason"), Value: entry.Reason, Inline: false},
	}
	if entry.Content != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: i18n.T(l.lang, "field_content"), Value: truncateRunes(entry.Content, maxContentRunes), Inline: false})
	}
	return &discordgo.MessageEmbed{
		Title:     "⚠️ " + label,
		Color:     l.color,
		Timestamp: l.clock.Now().UTC().Format(time.RFC3339),
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: i18n.T(l.lang, "footer_action", label)},
	}
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
