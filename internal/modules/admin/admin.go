package admin

import (
	"banguard/internal/platform"
	"banguard/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// Classifier decides whether a member is exempt from detection.
type Classifier struct {
	settings *storage.SettingsStore
}

func New(settings *storage.SettingsStore) *Classifier {
	return &Classifier{settings: settings}
}

func (c *Classifier) IsAdmin(guild *discordgo.Guild, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if HasAdministrator(guild, member) {
		return true
	}
	if c.settings == nil {
		return false
	}
	settings := c.settings.Snapshot()
	for _, roleID := range member.Roles {
		if settings.HasAdminRole(roleID) {
			return true
		}
	}
	return false
}

// HasAdministrator checks the Administrator permission only. Interaction
// members carry resolved permissions; gateway members need the guild roles.
func HasAdministrator(guild *discordgo.Guild, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	if guild == nil {
		return false
	}
	if member.User != nil && guild.OwnerID != "" && guild.OwnerID == member.User.ID {
		return true
	}
	return platform.MemberRolePermissions(guild, member)&discordgo.PermissionAdministrator != 0
}
