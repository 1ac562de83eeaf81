package bot

import (
	"banguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	dmPermission          = false
	minTimeout            = float64(storage.MinTimeoutMinutes)
)

func localized(en, ja string) *map[discordgo.Locale]string {
	return &map[discordgo.Locale]string{
		discordgo.EnglishUS: en,
		discordgo.Japanese:  ja,
	}
}

func listTypeOption(description, ja string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionString,
		Name:                     "list_type",
		Description:              description,
		DescriptionLocalizations: *localized(description, ja),
		Required:                 true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "text", Value: "text"},
			{Name: "user", Value: "user"},
		},
	}
}

func roleOption(description, ja string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionRole,
		Name:                     "role",
		Description:              description,
		DescriptionLocalizations: *localized(description, ja),
		Required:                 true,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "add",
			Description:              "Add text or a user ID to the ban list",
			DescriptionLocalizations: localized("Add text or a user ID to the ban list", "リストにテキストまたはユーザーIDを追加"),
			Options: []*discordgo.ApplicationCommandOption{
				listTypeOption("text or user", "text または user"),
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "value",
					Description:              "Text fragment or user ID",
					DescriptionLocalizations: *localized("Text fragment or user ID", "テキストまたはユーザーID"),
					Required:                 true,
				},
			},
		},
		{
			Name:                     "remove",
			Description:              "Remove text or a user ID from the ban list",
			DescriptionLocalizations: localized("Remove text or a user ID from the ban list", "リストからテキストまたはユーザーIDを削除"),
			Options: []*discordgo.ApplicationCommandOption{
				listTypeOption("text or user", "text または user"),
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "value",
					Description:              "Text fragment or user ID",
					DescriptionLocalizations: *localized("Text fragment or user ID", "テキストまたはユーザーID"),
					Required:                 true,
				},
			},
		},
		{
			Name:                     "list",
			Description:              "Show the current ban list",
			DescriptionLocalizations: localized("Show the current ban list", "現在のリストを表示"),
		},
		{
			Name:                     "setlog",
			Description:              "Set the log channel",
			DescriptionLocalizations: localized("Set the log channel", "ログチャンネルを設定"),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionChannel,
					Name:                     "channel",
					Description:              "Channel that receives detection logs",
					DescriptionLocalizations: *localized("Channel that receives detection logs", "検知ログを送信するチャンネル"),
					ChannelTypes:             []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					Required:                 true,
				},
			},
		},
		{
			Name:                     "setrole",
			Description:              "Set the role given to detected users",
			DescriptionLocalizations: localized("Set the role given to detected users", "危険ユーザーに付与するロールを設定"),
			Options:                  []*discordgo.ApplicationCommandOption{roleOption("Danger role", "危険ユーザーロール")},
		},
		{
			Name:                     "clearlog",
			Description:              "Clear the processed log records",
			DescriptionLocalizations: localized("Clear the processed log records", "処理済みログの記録をクリア（テスト用）"),
		},
		{
			Name:                     "unban",
			Description:              "Unban a user and remove them from the list",
			DescriptionLocalizations: localized("Unban a user and remove them from the list", "ユーザーのバンを解除し、リストから削除"),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "user_id",
					Description:              "Numeric user ID",
					DescriptionLocalizations: *localized("Numeric user ID", "ユーザーID"),
					Required:                 true,
				},
			},
		},
		{
			Name:                     "setadminrole",
			Description:              "Add an admin role (exempt from detection)",
			DescriptionLocalizations: localized("Add an admin role (exempt from detection)", "管理者ロールを設定（複数指定可能）"),
			Options:                  []*discordgo.ApplicationCommandOption{roleOption("Admin role", "管理者ロール")},
		},
		{
			Name:                     "removeadminrole",
			Description:              "Remove an admin role",
			DescriptionLocalizations: localized("Remove an admin role", "管理者ロールから削除"),
			Options:                  []*discordgo.ApplicationCommandOption{roleOption("Admin role", "管理者ロール")},
		},
		{
			Name:                     "listadminroles",
			Description:              "Show the admin roles",
			DescriptionLocalizations: localized("Show the admin roles", "現在の管理者ロール一覧を表示"),
		},
		{
			Name:                     "punish",
			Description:              "Set the punishment applied on detection",
			DescriptionLocalizations: localized("Set the punishment applied on detection", "検知時に自動適用される全体の処罰方法を設定"),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:                     discordgo.ApplicationCommandOptionString,
					Name:                     "punishment_type",
					Description:              "Punishment applied to every detected user",
					DescriptionLocalizations: *localized("Punishment applied to every detected user", "検知時に全ユーザーに自動適用する処罰の種類（全体設定）"),
					Required:                 true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "ban", NameLocalizations: map[discordgo.Locale]string{discordgo.Japanese: "バン"}, Value: "ban"},
						{Name: "kick", NameLocalizations: map[discordgo.Locale]string{discordgo.Japanese: "キック"}, Value: "kick"},
						{Name: "timeout", NameLocalizations: map[discordgo.Locale]string{discordgo.Japanese: "タイムアウト"}, Value: "timeout"},
					},
				},
				{
					Type:                     discordgo.ApplicationCommandOptionInteger,
					Name:                     "timeout_minutes",
					Description:              "Timeout length in minutes (timeout only)",
					DescriptionLocalizations: *localized("Timeout length in minutes (timeout only)", "タイムアウトの時間（分）。timeoutを選択した場合のみ必要"),
					MinValue:                 &minTimeout,
					MaxValue:                 float64(storage.MaxTimeoutMinutes),
				},
			},
		},
		{
			Name:                     "punishstatus",
			Description:              "Show the current punishment setting",
			DescriptionLocalizations: localized("Show the current punishment setting", "現在の全体処罰設定を確認"),
		},
	}
	for _, command := range commands {
		command.DefaultMemberPermissions = &adminPermission
		command.DMPermission = &dmPermission
	}
	return commands
}

func (b *Bot) registerCommands() error {
	appID := ""
	if b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions())
	if err != nil {
		return err
	}
	b.logger.Info("slash commands registered", zap.Int("count", len(registered)))
	return nil
}
