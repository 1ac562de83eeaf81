// Package i18n holds the user-facing strings of the bot.
package i18n

import "fmt"

const (
	English  = "en"
	Japanese = "ja"
)

var catalogs = map[string]map[string]string{
	English: {
		"kind_join":     "Join detection",
		"kind_mention":  "Mention detection",
		"kind_text":     "Banned text detection",
		"kind_periodic": "Periodic check detection",

		"reason_listed_id":  "User ID is on the ban list",
		"reason_listed_via": "User ID is on the ban list (%s)",
		"reason_text":       "Banned text detected: %s",
		"reason_unban":      "Unbanned by administrator %s",

		"field_user":        "User",
		"field_user_id":     "User ID",
		"field_reason":      "Reason",
		"field_content":     "Message content",
		"field_ids":         "User IDs",
		"field_texts":       "Banned texts",
		"field_roles":       "Roles",
		"field_description": "Description",
		"field_timeout":     "Timeout duration",
		"footer_action":     "Action: %s",
		"footer_actor":      "Executed by: %s",
		"footer_set_by":     "Set by: %s",

		"value_none":    "None",
		"value_minutes": "%d minutes",
		"role_unknown":  "Unknown role (ID: %s)",

		"error_title":        "Error",
		"error_admin_only":   "This command can only be used by administrators.",
		"error_guild_only":   "This command can only be used in a server.",
		"error_list_type":    "list_type must be 'text' or 'user'.",
		"error_value":        "A value is required.",
		"error_failed":       "The change could not be saved.",
		"error_invalid_id":   "Invalid user ID.",
		"error_timeout":      "Timeout must be between 1 and 40320 minutes (28 days).",
		"error_punishment":   "Unknown punishment type.",
		"error_unknown":      "Unknown command.",
		"error_channel":      "Please choose a channel of this server.",
		"error_role":         "Please choose a role.",
		"error_unban_failed": "Unban request failed: %s",

		"title_add":    "Ban list",
		"title_remove": "Ban list",
		"text_added":   "Text `%s` was added to the list.",
		"text_exists":  "Text `%s` is already on the list.",
		"id_added":     "User ID `%s` was added to the list.",
		"id_exists":    "User ID `%s` is already on the list.",
		"text_removed": "Text `%s` was removed from the list.",
		"text_missing": "Text `%s` is not on the list.",
		"id_removed":   "User ID `%s` was removed from the list.",
		"id_missing":   "User ID `%s` is not on the list.",
		"list_title":   "Ban list",

		"title_setlog":  "Log channel",
		"log_set":       "Log channel set to %s.",
		"title_setrole": "Danger role",
		"role_set":      "Danger user role set to %s.",
		"role_warning":  "Warning: the bot's role is not above the target role. Move the bot's role above it so the role can be granted.",

		"title_clearlog": "Processed log records",
		"log_cleared":    "Cleared processed log records (%d).",

		"unban_title":        "Unban result",
		"unban_done":         "Ban lifted",
		"unban_not_banned":   "Unban failed (the user may already be unbanned or was never banned)",
		"unban_list_removed": "Removed from the list",
		"unban_list_absent":  "Not on the list",

		"title_adminroles":   "Admin roles",
		"admin_added":        "Added %s to the admin roles.",
		"admin_exists":       "%s is already an admin role.",
		"admin_removed":      "Removed %s from the admin roles.",
		"admin_missing":      "%s is not an admin role.",
		"admin_none":         "No admin roles are configured.\nNote: members with the Administrator permission are always exempt.",
		"admin_list_title":   "Admin role list",
		"admin_list_explain": "Members with the Administrator permission are always exempt.",

		"punish_ban":           "Ban",
		"punish_kick":          "Kick",
		"punish_timeout":       "Timeout (%d minutes)",
		"punish_updated_title": "Global punishment updated",
		"punish_updated_desc":  "Punishment applied automatically to every future detection: **%s**",
		"punish_status_title":  "Current global punishment",
		"punish_status_desc":   "Punishment applied automatically on detection: **%s**",
		"punish_explain":       "This applies to every user detected through a listed user ID or banned text.",
		"punish_status_footer": "Use /punish to change this setting",
	},
	Japanese: {
		"kind_join":     "参加時検知",
		"kind_mention":  "メンション時検知",
		"kind_text":     "禁止文字列検知",
		"kind_periodic": "定期チェック検知",

		"reason_listed_id":  "リストに記載されているユーザーID",
		"reason_listed_via": "リストに記載されているユーザーID（%s）",
		"reason_text":       "禁止文字列を検知: %s",
		"reason_unban":      "管理者 %s による解除",

		"field_user":        "ユーザー",
		"field_user_id":     "ユーザーID",
		"field_reason":      "理由",
		"field_content":     "メッセージ内容",
		"field_ids":         "ユーザーID",
		"field_texts":       "禁止テキスト",
		"field_roles":       "ロール",
		"field_description": "説明",
		"field_timeout":     "タイムアウト時間",
		"footer_action":     "アクション: %s",
		"footer_actor":      "実行者: %s",
		"footer_set_by":     "設定者: %s",

		"value_none":    "なし",
		"value_minutes": "%d分",
		"role_unknown":  "不明なロール (ID: %s)",

		"error_title":        "エラー",
		"error_admin_only":   "このコマンドは管理者のみ使用できます。",
		"error_guild_only":   "このコマンドはサーバー内でのみ使用できます。",
		"error_list_type":    "list_typeは 'text' または 'user' を指定してください。",
		"error_value":        "値を指定してください。",
		"error_failed":       "変更を保存できませんでした。",
		"error_invalid_id":   "無効なユーザーIDです。",
		"error_timeout":      "タイムアウト時間は1分から40320分（28日）の間で指定してください。",
		"error_punishment":   "不明な処罰方法です。",
		"error_unknown":      "不明なコマンドです。",
		"error_channel":      "このサーバーのチャンネルを指定してください。",
		"error_role":         "ロールを指定してください。",
		"error_unban_failed": "バン解除リクエストに失敗しました: %s",

		"title_add":    "バンリスト",
		"title_remove": "バンリスト",
		"text_added":   "テキスト `%s` をリストに追加しました。",
		"text_exists":  "テキスト `%s` は既にリストに存在します。",
		"id_added":     "ユーザーID `%s` をリストに追加しました。",
		"id_exists":    "ユーザーID `%s` は既にリストに存在します。",
		"text_removed": "テキスト `%s` をリストから削除しました。",
		"text_missing": "テキスト `%s` はリストに存在しません。",
		"id_removed":   "ユーザーID `%s` をリストから削除しました。",
		"id_missing":   "ユーザーID `%s` はリストに存在しません。",
		"list_title":   "バンリスト",

		"title_setlog":  "ログチャンネル",
		"log_set":       "ログチャンネルを %s に設定しました。",
		"title_setrole": "危険ユーザーロール",
		"role_set":      "危険ユーザーロールを %s に設定しました。",
		"role_warning":  "⚠️ 警告: BOTのロール位置が対象ロールより下です。ロールを付与するには、BOTのロールを対象ロールより上に配置してください。",

		"title_clearlog": "処理済みログ",
		"log_cleared":    "処理済みログの記録をクリアしました（%d件）。",

		"unban_title":        "バン解除結果",
		"unban_done":         "バンを解除しました",
		"unban_not_banned":   "バン解除に失敗しました（既に解除されているか、バンされていない可能性があります）",
		"unban_list_removed": "リストから削除しました",
		"unban_list_absent":  "リストに存在しませんでした",

		"title_adminroles":   "管理者ロール",
		"admin_added":        "管理者ロールに %s を追加しました。",
		"admin_exists":       "%s は既に管理者ロールに設定されています。",
		"admin_removed":      "管理者ロールから %s を削除しました。",
		"admin_missing":      "%s は管理者ロールに設定されていません。",
		"admin_none":         "管理者ロールが設定されていません。\n注: 管理者権限を持つユーザーは自動的に除外されます。",
		"admin_list_title":   "管理者ロール一覧",
		"admin_list_explain": "管理者権限を持つユーザーは自動的に除外されます。",

		"punish_ban":           "バン",
		"punish_kick":          "キック",
		"punish_timeout":       "タイムアウト (%d分)",
		"punish_updated_title": "全体の処罰設定を更新しました",
		"punish_updated_desc":  "今後検知されるすべてのユーザーに自動適用される処罰: **%s**",
		"punish_status_title":  "現在の全体処罰設定",
		"punish_status_desc":   "検知時に自動適用される処罰: **%s**",
		"punish_explain":       "この設定は、リストに記載されているユーザーIDや禁止文字列を検知した際に、すべてのユーザーに自動適用されます。",
		"punish_status_footer": "設定を変更するには /punish コマンドを使用してください",
	},
}

// T returns the string for key in lang, falling back to English and then to
// the key itself. Args are applied with fmt.Sprintf when present.
func T(lang, key string, args ...any) string {
	value, ok := catalogs[lang][key]
	if !ok {
		value, ok = catalogs[English][key]
	}
	if !ok {
		value = key
	}
	if len(args) == 0 {
		return value
	}
	return fmt.Sprintf(value, args...)
}

func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}
