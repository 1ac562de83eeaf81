// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"sort"
	"strings"
	"sync"
	"time"

	"banguard/internal/platform"

	"github.com/bwmarrin/discordgo"
)

type Call struct {
	Op      string
	GuildID string
	UserID  string
	Detail  string
}

type SentEmbed struct {
	ChannelID string
	Embed     *discordgo.MessageEmbed
}

// Fake records every mutating call. Errors are looked up by "op:guildID"
// first and then by "op".
type Fake struct {
	mu sync.Mutex

	BotID    string
	Guilds   map[string]*discordgo.Guild
	Channels map[string]*discordgo.Channel
	Users    map[string]*discordgo.User
	Errors   map[string]error

	members map[string][]*discordgo.Member
	bans    map[string]bool
	calls   []Call
	sent    []SentEmbed
}

func New(botID string) *Fake {
	return &Fake{
		BotID:    botID,
		Guilds:   make(map[string]*discordgo.Guild),
		Channels: make(map[string]*discordgo.Channel),
		Users:    make(map[string]*discordgo.User),
		Errors:   make(map[string]error),
		members:  make(map[string][]*discordgo.Member),
		bans:     make(map[string]bool),
	}
}

func (f *Fake) AddGuild(guild *discordgo.Guild) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Guilds[guild.ID] = guild
}

func (f *Fake) AddChannel(channel *discordgo.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Channels[channel.ID] = channel
}

func (f *Fake) AddMember(guildID string, member *discordgo.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member.GuildID = guildID
	if member.User != nil {
		f.Users[member.User.ID] = member.User
	}
	list := append(f.members[guildID], member)
	sort.Slice(list, func(i, j int) bool {
		return snowflakeLess(list[i].User.ID, list[j].User.ID)
	})
	f.members[guildID] = list
}

func (f *Fake) SetError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, op)
		return
	}
	f.Errors[op] = err
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsFor returns the recorded calls with the given op.
func (f *Fake) CallsFor(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, call := range f.calls {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (f *Fake) Sent() []SentEmbed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentEmbed(nil), f.sent...)
}

func (f *Fake) Banned(guildID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bans[guildID+":"+userID]
}

func (f *Fake) BotUserID() string {
	return f.BotID
}

func (f *Fake) GuildIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.Guilds))
	for id := range f.Guilds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *Fake) Guild(guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errLocked("guild", guildID); err != nil {
		return nil, err
	}
	guild, ok := f.Guilds[guildID]
	if !ok {
		return nil, platform.Wrap("guild", platform.ErrNotFound)
	}
	return guild, nil
}

func (f *Fake) Channel(channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errLocked("channel", ""); err != nil {
		return nil, err
	}
	channel, ok := f.Channels[channelID]
	if !ok {
		return nil, platform.Wrap("channel", platform.ErrNotFound)
	}
	return channel, nil
}

func (f *Fake) Member(guildID, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errLocked("member", guildID); err != nil {
		return nil, err
	}
	if member := f.memberLocked(guildID, userID); member != nil {
		return member, nil
	}
	return nil, platform.Wrap("member", platform.ErrNotFound)
}

func (f *Fake) Members(guildID, after string, limit int) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "members", GuildID: guildID, Detail: after})
	if err := f.errLocked("members", guildID); err != nil {
		return nil, err
	}
	var page []*discordgo.Member
	for _, member := range f.members[guildID] {
		if after != "" && !snowflakeLess(after, member.User.ID) {
			continue
		}
		page = append(page, member)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *Fake) User(userID string) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errLocked("user", ""); err != nil {
		return nil, err
	}
	user, ok := f.Users[userID]
	if !ok {
		return nil, platform.Wrap("user", platform.ErrNotFound)
	}
	return user, nil
}

func (f *Fake) Ban(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "ban", GuildID: guildID, UserID: userID, Detail: reason})
	if err := f.errLocked("ban", guildID); err != nil {
		return err
	}
	f.bans[guildID+":"+userID] = true
	return nil
}

func (f *Fake) Unban(guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "unban", GuildID: guildID, UserID: userID})
	if err := f.errLocked("unban", guildID); err != nil {
		return err
	}
	key := guildID + ":" + userID
	if !f.bans[key] {
		return platform.Wrap("unban", platform.ErrNotFound)
	}
	delete(f.bans, key)
	return nil
}

func (f *Fake) Kick(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "kick", GuildID: guildID, UserID: userID, Detail: reason})
	return f.errLocked("kick", guildID)
}

func (f *Fake) Timeout(guildID, userID string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "timeout", GuildID: guildID, UserID: userID, Detail: until.UTC().Format(time.RFC3339)})
	return f.errLocked("timeout", guildID)
}

func (f *Fake) AddRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "add_role", GuildID: guildID, UserID: userID, Detail: roleID})
	if err := f.errLocked("add_role", guildID); err != nil {
		return err
	}
	if member := f.memberLocked(guildID, userID); member != nil {
		member.Roles = append(member.Roles, roleID)
	}
	return nil
}

func (f *Fake) DeleteMessage(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "delete_message", Detail: channelID + "/" + messageID})
	return f.errLocked("delete_message", "")
}

func (f *Fake) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "send_embed", Detail: channelID})
	if err := f.errLocked("send_embed", ""); err != nil {
		return err
	}
	f.sent = append(f.sent, SentEmbed{ChannelID: channelID, Embed: embed})
	return nil
}

func (f *Fake) memberLocked(guildID, userID string) *discordgo.Member {
	for _, member := range f.members[guildID] {
		if member.User != nil && member.User.ID == userID {
			return member
		}
	}
	return nil
}

func (f *Fake) errLocked(op, guildID string) error {
	if guildID != "" {
		if err, ok := f.Errors[op+":"+guildID]; ok {
			return platform.Wrap(op, err)
		}
	}
	if err, ok := f.Errors[op]; ok {
		return platform.Wrap(op, err)
	}
	return nil
}

func snowflakeLess(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
