// Package platform is the boundary between the moderation core and Discord.
// Every method returns errors classified by Wrap.
package platform

import (
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Platform interface {
	BotUserID() string
	GuildIDs() []string
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Members(guildID, after string, limit int) ([]*discordgo.Member, error)
	User(userID string) (*discordgo.User, error)

	Ban(guildID, userID, reason string) error
	Unban(guildID, userID string) error
	Kick(guildID, userID, reason string) error
	Timeout(guildID, userID string, until time.Time) error
	AddRole(guildID, userID, roleID string) error

	DeleteMessage(channelID, messageID string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// Discord implements Platform on a discordgo session, preferring the state
// cache and falling back to REST the way the gateway client is meant to be used.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) BotUserID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

func (d *Discord) GuildIDs() []string {
	if d.session.State == nil {
		return nil
	}
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	ids := make([]string, 0, len(d.session.State.Guilds))
	for _, guild := range d.session.State.Guilds {
		if guild != nil {
			ids = append(ids, guild.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (d *Discord) Guild(guildID string) (*discordgo.Guild, error) {
	if d.session.State != nil {
		if guild, err := d.session.State.Guild(guildID); err == nil && guild != nil {
			return guild, nil
		}
	}
	guild, err := d.session.Guild(guildID)
	return guild, Wrap("guild", err)
}

func (d *Discord) Channel(channelID string) (*discordgo.Channel, error) {
	if d.session.State != nil {
		if channel, err := d.session.State.Channel(channelID); err == nil && channel != nil {
			return channel, nil
		}
	}
	channel, err := d.session.Channel(channelID)
	return channel, Wrap("channel", err)
}

func (d *Discord) Member(guildID, userID string) (*discordgo.Member, error) {
	if d.session.State != nil {
		if member, err := d.session.State.Member(guildID, userID); err == nil && member != nil {
			return member, nil
		}
	}
	member, err := d.session.GuildMember(guildID, userID)
	return member, Wrap("member", err)
}

func (d *Discord) Members(guildID, after string, limit int) ([]*discordgo.Member, error) {
	members, err := d.session.GuildMembers(guildID, after, limit)
	return members, Wrap("members", err)
}

func (d *Discord) User(userID string) (*discordgo.User, error) {
	user, err := d.session.User(userID)
	return user, Wrap("user", err)
}

func (d *Discord) Ban(guildID, userID, reason string) error {
	return Wrap("ban", d.session.GuildBanCreateWithReason(guildID, userID, reason, 0))
}

func (d *Discord) Unban(guildID, userID string) error {
	return Wrap("unban", d.session.GuildBanDelete(guildID, userID))
}

func (d *Discord) Kick(guildID, userID, reason string) error {
	return Wrap("kick", d.session.GuildMemberDeleteWithReason(guildID, userID, reason))
}

func (d *Discord) Timeout(guildID, userID string, until time.Time) error {
	return Wrap("timeout", d.session.GuildMemberTimeout(guildID, userID, &until))
}

func (d *Discord) AddRole(guildID, userID, roleID string) error {
	return Wrap("add_role", d.session.GuildMemberRoleAdd(guildID, userID, roleID))
}

func (d *Discord) DeleteMessage(channelID, messageID string) error {
	return Wrap("delete_message", d.session.ChannelMessageDelete(channelID, messageID))
}

func (d *Discord) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := d.session.ChannelMessageSendEmbed(channelID, embed)
	return Wrap("send_embed", err)
}

// MemberRolePermissions folds the @everyone role and the member's roles.
func MemberRolePermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		if role != nil {
			roleMap[role.ID] = role
		}
	}
	perms := int64(0)
	if everyone := roleMap[guild.ID]; everyone != nil {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}

// TopRolePosition is the highest position among the member's roles, 0 for none.
func TopRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	if guild == nil || member == nil {
		return 0
	}
	top := 0
	for _, roleID := range member.Roles {
		if role := FindRole(guild, roleID); role != nil && role.Position > top {
			top = role.Position
		}
	}
	return top
}

func FindRole(guild *discordgo.Guild, roleID string) *discordgo.Role {
	if guild == nil || roleID == "" {
		return nil
	}
	for _, role := range guild.Roles {
		if role != nil && role.ID == roleID {
			return role
		}
	}
	return nil
}
