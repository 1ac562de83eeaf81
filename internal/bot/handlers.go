package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"banguard/internal/modules/admin"
	"banguard/internal/platform"
	"banguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Embed field values are capped at 1024 characters by Discord.
const maxFieldRunes = 1000

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(data discordgo.ApplicationCommandInteractionData) commandOptions {
	opts := make(commandOptions, len(data.Options))
	for _, opt := range data.Options {
		if opt != nil {
			opts[opt.Name] = opt
		}
	}
	return opts
}

// str reads string-valued options, which also covers channel, role and user ids.
func (o commandOptions) str(name string) string {
	opt, ok := o[name]
	if !ok || opt.Value == nil {
		return ""
	}
	switch v := opt.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (o commandOptions) integer(name string) (int, bool) {
	opt, ok := o[name]
	if !ok || opt.Value == nil {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	embed := b.runCommand(context.Background(), interaction.GuildID, interaction.Member, data)
	b.respondEmbed(session, interaction, embed, true)
}

func (b *Bot) runCommand(ctx context.Context, guildID string, invoker *discordgo.Member, data discordgo.ApplicationCommandInteractionData) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	if guildID == "" {
		return b.commandEmbed(b.t("error_title"), b.t("error_guild_only"), colors.Error, nil)
	}
	guild := b.guild(guildID)
	if !admin.HasAdministrator(guild, invoker) {
		return b.commandEmbed(b.t("error_title"), b.t("error_admin_only"), colors.Error, nil)
	}
	commandCount.WithLabelValues(data.Name).Inc()

	actor := ""
	if invoker != nil && invoker.User != nil {
		actor = invoker.User.Username
	}
	opts := optionsOf(data)

	switch data.Name {
	case "add":
		return b.handleListAdd(opts)
	case "remove":
		return b.handleListRemove(opts)
	case "list":
		return b.handleList()
	case "setlog":
		return b.handleSetLog(guildID, opts)
	case "setrole":
		return b.handleSetRole(guildID, guild, opts)
	case "clearlog":
		count := b.suppress.Clear()
		b.logger.Info("suppression records cleared", zap.Int("count", count), zap.String("actor", actor))
		return b.commandEmbed(b.t("title_clearlog"), b.t("log_cleared", count), colors.Success, nil)
	case "unban":
		return b.handleUnban(ctx, guildID, actor, opts)
	case "setadminrole":
		return b.handleAdminRole(opts, true)
	case "removeadminrole":
		return b.handleAdminRole(opts, false)
	case "listadminroles":
		return b.handleListAdminRoles(guild)
	case "punish":
		return b.handlePunish(actor, opts)
	case "punishstatus":
		return b.handlePunishStatus()
	default:
		return b.commandEmbed(b.t("error_title"), b.t("error_unknown"), colors.Error, nil)
	}
}

func (b *Bot) handleListAdd(opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	value := opts.str("value")
	if value == "" {
		return b.commandEmbed(b.t("title_add"), b.t("error_value"), colors.Error, nil)
	}
	var err error
	var added, exists string
	switch strings.ToLower(opts.str("list_type")) {
	case "text":
		err = b.lists.AddText(value)
		added, exists = "text_added", "text_exists"
	case "user":
		err = b.lists.AddIdentifier(value)
		added, exists = "id_added", "id_exists"
	default:
		return b.commandEmbed(b.t("title_add"), b.t("error_list_type"), colors.Error, nil)
	}
	switch {
	case errors.Is(err, storage.ErrAlreadyListed):
		return b.commandEmbed(b.t("title_add"), b.t(exists, value), colors.Warning, nil)
	case err != nil:
		b.logger.Error("ban list update failed", zap.Error(err))
		return b.commandEmbed(b.t("title_add"), b.t("error_failed"), colors.Error, nil)
	}
	return b.commandEmbed(b.t("title_add"), b.t(added, value), colors.Success, nil)
}

func (b *Bot) handleListRemove(opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	value := opts.str("value")
	var err error
	var removed, missing string
	switch strings.ToLower(opts.str("list_type")) {
	case "text":
		err = b.lists.RemoveText(value)
		removed, missing = "text_removed", "text_missing"
	case "user":
		err = b.lists.RemoveIdentifier(value)
		removed, missing = "id_removed", "id_missing"
	default:
		return b.commandEmbed(b.t("title_remove"), b.t("error_list_type"), colors.Error, nil)
	}
	switch {
	case errors.Is(err, storage.ErrNotListed):
		return b.commandEmbed(b.t("title_remove"), b.t(missing, value), colors.Warning, nil)
	case err != nil:
		b.logger.Error("ban list update failed", zap.Error(err))
		return b.commandEmbed(b.t("title_remove"), b.t("error_failed"), colors.Error, nil)
	}
	return b.commandEmbed(b.t("title_remove"), b.t(removed, value), colors.Success, nil)
}

func (b *Bot) handleList() *discordgo.MessageEmbed {
	list := b.lists.Load()
	ids := make([]string, 0, len(list.Identifiers))
	for _, id := range list.Identifiers {
		ids = append(ids, id.String())
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t("field_ids"), Value: b.codeBlock(ids), Inline: false},
		{Name: b.t("field_texts"), Value: b.codeBlock(list.TextFragments), Inline: false},
	}
	return b.commandEmbed(b.t("list_title"), "", b.cfg.Notifications.EmbedColors.Detect, fields)
}

func (b *Bot) handleSetLog(guildID string, opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	channelID := opts.str("channel")
	channel, err := b.platform.Channel(channelID)
	if err != nil || channel.GuildID != guildID {
		return b.commandEmbed(b.t("title_setlog"), b.t("error_channel"), colors.Error, nil)
	}
	if err := b.settings.SetLogChannel(channel.ID); err != nil {
		b.logger.Error("settings update failed", zap.Error(err))
		return b.commandEmbed(b.t("title_setlog"), b.t("error_failed"), colors.Error, nil)
	}
	b.logger.Info("log channel set", zap.String("guild_id", guildID), zap.String("channel_id", channel.ID))
	return b.commandEmbed(b.t("title_setlog"), b.t("log_set", "<#"+channel.ID+">"), colors.Success, nil)
}

func (b *Bot) handleSetRole(guildID string, guild *discordgo.Guild, opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	roleID := opts.str("role")
	if roleID == "" {
		return b.commandEmbed(b.t("title_setrole"), b.t("error_role"), colors.Error, nil)
	}
	if err := b.settings.SetDangerRole(roleID); err != nil {
		b.logger.Error("settings update failed", zap.Error(err))
		return b.commandEmbed(b.t("title_setrole"), b.t("error_failed"), colors.Error, nil)
	}
	message := b.t("role_set", "<@&"+roleID+">")
	if guild != nil && platform.FindRole(guild, roleID) != nil && b.punish.RoleAboveBot(guildID, roleID) {
		return b.commandEmbed(b.t("title_setrole"), message+"\n"+b.t("role_warning"), colors.Warning, nil)
	}
	return b.commandEmbed(b.t("title_setrole"), message, colors.Success, nil)
}

func (b *Bot) handleUnban(ctx context.Context, guildID, actor string, opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	userID := opts.str("user_id")
	parsed, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return b.commandEmbed(b.t("unban_title"), b.t("error_invalid_id"), colors.Error, nil)
	}
	userID = strconv.FormatUint(parsed, 10)

	lines := make([]string, 0, 2)
	lifted, unbanErr := b.punish.Unban(ctx, guildID, userID, b.t("reason_unban", actor))
	switch {
	case unbanErr != nil:
		lines = append(lines, "⚠️ "+b.t("error_unban_failed", platform.Classify(unbanErr).String()))
	case lifted:
		lines = append(lines, "✅ "+b.t("unban_done"))
	default:
		lines = append(lines, "⚠️ "+b.t("unban_not_banned"))
	}

	removed := false
	switch err := b.lists.RemoveIdentifier(userID); {
	case err == nil:
		removed = true
		lines = append(lines, "✅ "+b.t("unban_list_removed"))
	case errors.Is(err, storage.ErrNotListed):
		lines = append(lines, "⚠️ "+b.t("unban_list_absent"))
	default:
		b.logger.Error("ban list update failed", zap.Error(err))
		lines = append(lines, "⚠️ "+b.t("error_failed"))
	}

	color := colors.Warning
	if lifted || removed {
		color = colors.Success
	}
	embed := b.commandEmbed(b.t("unban_title"), strings.Join(lines, "\n"), color, []*discordgo.MessageEmbedField{
		{Name: b.t("field_user_id"), Value: userID, Inline: false},
	})
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t("footer_actor", actor)}
	return embed
}

func (b *Bot) handleAdminRole(opts commandOptions, add bool) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	roleID := opts.str("role")
	if roleID == "" {
		return b.commandEmbed(b.t("title_adminroles"), b.t("error_role"), colors.Error, nil)
	}
	mention := "<@&" + roleID + ">"
	var err error
	var okKey, dupKey string
	if add {
		err = b.settings.AddAdminRole(roleID)
		okKey, dupKey = "admin_added", "admin_exists"
	} else {
		err = b.settings.RemoveAdminRole(roleID)
		okKey, dupKey = "admin_removed", "admin_missing"
	}
	switch {
	case errors.Is(err, storage.ErrAlreadyListed), errors.Is(err, storage.ErrNotListed):
		return b.commandEmbed(b.t("title_adminroles"), b.t(dupKey, mention), colors.Warning, nil)
	case err != nil:
		b.logger.Error("settings update failed", zap.Error(err))
		return b.commandEmbed(b.t("title_adminroles"), b.t("error_failed"), colors.Error, nil)
	}
	return b.commandEmbed(b.t("title_adminroles"), b.t(okKey, mention), colors.Success, nil)
}

func (b *Bot) handleListAdminRoles(guild *discordgo.Guild) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	settings := b.settings.Snapshot()
	if len(settings.AdminRoleIDs) == 0 {
		return b.commandEmbed(b.t("admin_list_title"), b.t("admin_none"), colors.Info, nil)
	}
	lines := make([]string, 0, len(settings.AdminRoleIDs))
	for _, id := range settings.AdminRoleIDs {
		if platform.FindRole(guild, id.String()) != nil {
			lines = append(lines, "<@&"+id.String()+"> (ID: "+id.String()+")")
			continue
		}
		lines = append(lines, b.t("role_unknown", id.String()))
	}
	embed := b.commandEmbed(b.t("admin_list_title"), "", colors.Info, []*discordgo.MessageEmbedField{
		{Name: b.t("field_roles"), Value: truncateField(strings.Join(lines, "\n")), Inline: false},
	})
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t("admin_list_explain")}
	return embed
}

func (b *Bot) handlePunish(actor string, opts commandOptions) *discordgo.MessageEmbed {
	colors := b.cfg.Notifications.EmbedColors
	kind, ok := storage.ParsePunishment(opts.str("punishment_type"))
	if !ok {
		return b.commandEmbed(b.t("error_title"), b.t("error_punishment"), colors.Error, nil)
	}
	minutes, given := opts.integer("timeout_minutes")
	if given && kind == storage.PunishTimeout && minutes == 0 {
		return b.commandEmbed(b.t("error_title"), b.t("error_timeout"), colors.Error, nil)
	}
	settings, err := b.settings.SetPunishment(kind, minutes)
	switch {
	case errors.Is(err, storage.ErrTimeoutRange):
		return b.commandEmbed(b.t("error_title"), b.t("error_timeout"), colors.Error, nil)
	case err != nil:
		b.logger.Error("settings update failed", zap.Error(err))
		return b.commandEmbed(b.t("error_title"), b.t("error_failed"), colors.Error, nil)
	}
	b.logger.Info("punishment updated",
		zap.String("punishment", string(settings.DefaultPunishment)),
		zap.Int("timeout_minutes", settings.TimeoutDurationMinutes),
		zap.String("actor", actor))

	description := b.t("punish_updated_desc", b.punishmentName(settings)) + "\n\n" + b.t("punish_explain")
	var fields []*discordgo.MessageEmbedField
	if settings.EffectivePunishment() == storage.PunishTimeout {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t("field_timeout"), Value: b.t("value_minutes", settings.TimeoutDurationMinutes), Inline: false})
	}
	embed := b.commandEmbed("✅ "+b.t("punish_updated_title"), description, colors.Success, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t("footer_set_by", actor)}
	return embed
}

func (b *Bot) handlePunishStatus() *discordgo.MessageEmbed {
	settings := b.settings.Snapshot()
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t("field_description"), Value: b.t("punish_explain"), Inline: false},
	}
	if settings.EffectivePunishment() == storage.PunishTimeout {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t("field_timeout"), Value: b.t("value_minutes", settings.TimeoutDurationMinutes), Inline: false})
	}
	embed := b.commandEmbed(b.t("punish_status_title"), b.t("punish_status_desc", b.punishmentName(settings)), b.cfg.Notifications.EmbedColors.Info, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t("punish_status_footer")}
	return embed
}

func (b *Bot) punishmentName(settings storage.Settings) string {
	switch settings.EffectivePunishment() {
	case storage.PunishKick:
		return b.t("punish_kick")
	case storage.PunishTimeout:
		return b.t("punish_timeout", settings.TimeoutDurationMinutes)
	default:
		return b.t("punish_ban")
	}
}

func (b *Bot) codeBlock(lines []string) string {
	body := b.t("value_none")
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	return "```\n" + truncateField(body) + "\n```"
}

func truncateField(value string) string {
	if utf8.RuneCountInString(value) <= maxFieldRunes {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxFieldRunes-1]) + "…"
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}
