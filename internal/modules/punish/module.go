package punish

import (
	"context"
	"slices"
	"time"

	"banguard/internal/platform"
	"banguard/internal/storage"
	"banguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Action describes one punishment attempt.
type Action struct {
	GuildID   string
	SubjectID string
	Reason    string
	Kind      storage.Punishment
	Until     time.Time
}

type Module struct {
	platform platform.Platform
	settings *storage.SettingsStore
	logger   *zap.Logger
	clock    utils.Clock
}

func New(p platform.Platform, settings *storage.SettingsStore, logger *zap.Logger) *Module {
	return &Module{platform: p, settings: settings, logger: logger, clock: utils.RealClock{}}
}

func (m *Module) WithClock(clock utils.Clock) {
	m.clock = clock
}

// Apply runs the configured punishment once. Kick and timeout need the
// subject to still be a member; ban does not.
func (m *Module) Apply(ctx context.Context, guildID, subjectID, reason string) (Action, error) {
	settings := m.settings.Snapshot()
	action := Action{GuildID: guildID, SubjectID: subjectID, Reason: reason, Kind: settings.EffectivePunishment()}
	if err := ctx.Err(); err != nil {
		return action, err
	}

	var err error
	switch action.Kind {
	case storage.PunishKick:
		if err = m.requireMember("kick", guildID, subjectID); err == nil {
			err = m.platform.Kick(guildID, subjectID, reason)
		}
	case storage.PunishTimeout:
		if err = m.requireMember("timeout", guildID, subjectID); err == nil {
			action.Until = m.clock.Now().Add(time.Duration(settings.TimeoutDurationMinutes) * time.Minute)
			err = m.platform.Timeout(guildID, subjectID, action.Until)
		}
	default:
		if _, err = m.platform.User(subjectID); err == nil {
			err = m.platform.Ban(guildID, subjectID, reason)
		}
	}
	if err != nil {
		m.logFailure(string(action.Kind), guildID, subjectID, err)
		return action, err
	}

	fields := []zap.Field{
		zap.String("guild_id", guildID),
		zap.String("user_id", subjectID),
		zap.String("punishment", string(action.Kind)),
		zap.String("reason", reason),
	}
	if !action.Until.IsZero() {
		fields = append(fields, zap.Time("until", action.Until))
	}
	m.logger.Info("punishment applied", fields...)
	return action, nil
}

func (m *Module) requireMember(op, guildID, subjectID string) error {
	_, err := m.platform.Member(guildID, subjectID)
	if err == nil {
		return nil
	}
	if platform.IsNotFound(err) {
		return &platform.Error{Op: op, Kind: platform.KindNotFound, Err: platform.ErrNotMember}
	}
	return err
}

// AssignDangerRole grants the configured danger role and reports true once the
// member holds it. It reports false without an error when no role is
// configured or the role no longer exists.
func (m *Module) AssignDangerRole(ctx context.Context, guildID string, member *discordgo.Member) (bool, error) {
	if member == nil || member.User == nil {
		return false, nil
	}
	roleID := m.settings.Snapshot().DangerRoleID.String()
	if roleID == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	guild, err := m.platform.Guild(guildID)
	if err != nil {
		m.logFailure("add_role", guildID, member.User.ID, err)
		return false, err
	}
	if platform.FindRole(guild, roleID) == nil {
		m.logger.Warn("danger role not found", zap.String("guild_id", guildID), zap.String("role_id", roleID))
		return false, nil
	}
	if slices.Contains(member.Roles, roleID) {
		return true, nil
	}
	if m.RoleAboveBot(guildID, roleID) {
		m.logger.Warn("danger role is not below the bot's top role; move the bot role above it",
			zap.String("guild_id", guildID),
			zap.String("role_id", roleID))
	}
	if err := m.platform.AddRole(guildID, member.User.ID, roleID); err != nil {
		m.logFailure("add_role", guildID, member.User.ID, err)
		return false, err
	}
	m.logger.Info("danger role assigned", zap.String("guild_id", guildID), zap.String("user_id", member.User.ID), zap.String("role_id", roleID))
	return true, nil
}

// RoleAboveBot reports whether roleID sits at or above the bot's highest role.
func (m *Module) RoleAboveBot(guildID, roleID string) bool {
	guild, err := m.platform.Guild(guildID)
	if err != nil {
		return false
	}
	role := platform.FindRole(guild, roleID)
	if role == nil {
		return false
	}
	botMember, err := m.platform.Member(guildID, m.platform.BotUserID())
	if err != nil {
		return false
	}
	return platform.TopRolePosition(guild, botMember) <= role.Position
}

// Unban lifts a ban. A subject that is not banned or does not exist yields
// false without an error.
func (m *Module) Unban(ctx context.Context, guildID, subjectID, reason string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := m.platform.Unban(guildID, subjectID); err != nil {
		if platform.IsNotFound(err) {
			m.logger.Info("unban skipped, no ban found", zap.String("guild_id", guildID), zap.String("user_id", subjectID))
			return false, nil
		}
		m.logFailure("unban", guildID, subjectID, err)
		return false, err
	}
	m.logger.Info("ban lifted", zap.String("guild_id", guildID), zap.String("user_id", subjectID), zap.String("reason", reason))
	return true, nil
}

func (m *Module) logFailure(op, guildID, subjectID string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("guild_id", guildID),
		zap.String("user_id", subjectID),
		zap.String("kind", platform.Classify(err).String()),
		zap.Error(err),
	}
	switch platform.Classify(err) {
	case platform.KindForbidden:
		m.logger.Warn("moderation action forbidden; check the bot has "+permissionHint(op)+" and its role is above the target", fields...)
	case platform.KindNotFound:
		m.logger.Info("moderation target not found", fields...)
	default:
		m.logger.Error("moderation action failed", fields...)
	}
}

func permissionHint(op string) string {
	switch op {
	case "kick":
		return "Kick Members"
	case "timeout":
		return "Moderate Members"
	case "add_role":
		return "Manage Roles"
	default:
		return "Ban Members"
	}
}
