package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"banguard/internal/config"
	"banguard/internal/platform/platformtest"
	"banguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type testEnv struct {
	bot      *Bot
	fake     *platformtest.Fake
	lists    *storage.ListStore
	settings *storage.SettingsStore
}

func newTestEnv(t *testing.T, settingsJSON string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(settingsPath, []byte(settingsJSON), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	settings, err := storage.OpenSettings(settingsPath)
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	lists, err := storage.OpenBanList(filepath.Join(dir, "ban_list.json"))
	if err != nil {
		t.Fatalf("open ban list: %v", err)
	}

	fake := platformtest.New("900")
	fake.AddGuild(&discordgo.Guild{
		ID:      "g1",
		OwnerID: "1",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0},
			{ID: "danger", Position: 1},
			{ID: "staff", Position: 3, Permissions: discordgo.PermissionAdministrator},
			{ID: "botrole", Position: 5},
		},
	})
	fake.AddChannel(&discordgo.Channel{ID: "log", GuildID: "g1"})
	fake.AddChannel(&discordgo.Channel{ID: "general", GuildID: "g1"})
	fake.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "900", Username: "banguard", Bot: true}, Roles: []string{"botrole"}})
	fake.AddMember("g1", &discordgo.Member{User: &discordgo.User{ID: "1", Username: "owner"}})

	cfg := config.DefaultConfig()
	b := newBot(cfg, zap.NewNop(), fake, lists, settings)
	return &testEnv{bot: b, fake: fake, lists: lists, settings: settings}
}

func (e *testEnv) addMember(id, name string, roles ...string) *discordgo.Member {
	member := &discordgo.Member{User: &discordgo.User{ID: id, Username: name}, Roles: roles}
	e.fake.AddMember("g1", member)
	return member
}

func TestJoinOfListedUser(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log", "danger_role_id": "danger"}`)
	if err := env.lists.AddIdentifier("123"); err != nil {
		t.Fatalf("add: %v", err)
	}
	member := env.addMember("123", "raider")

	env.bot.handleJoin(context.Background(), member)

	if calls := env.fake.CallsFor("add_role"); len(calls) != 1 || calls[0].Detail != "danger" {
		t.Fatalf("expected danger role grant, got %+v", calls)
	}
	sent := env.fake.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Embed.Title, "Join detection") {
		t.Fatalf("expected one join log, got %+v", sent)
	}
	if !env.fake.Banned("g1", "123") {
		t.Fatalf("expected default punishment ban")
	}
	order := env.fake.Calls()
	var ops []string
	for _, call := range order {
		if call.Op == "add_role" || call.Op == "send_embed" || call.Op == "ban" {
			ops = append(ops, call.Op)
		}
	}
	if strings.Join(ops, ",") != "add_role,send_embed,ban" {
		t.Fatalf("unexpected order: %v", ops)
	}
}

func TestJoinSkipsAdminsAndUnlisted(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log"}`)
	if err := env.lists.AddIdentifier("124"); err != nil {
		t.Fatalf("add: %v", err)
	}
	admin := env.addMember("124", "mod", "staff")
	env.bot.handleJoin(context.Background(), admin)

	other := env.addMember("125", "friend")
	env.bot.handleJoin(context.Background(), other)

	if len(env.fake.CallsFor("ban")) != 0 || len(env.fake.Sent()) != 0 {
		t.Fatalf("expected no action, got %+v", env.fake.Calls())
	}
}

func TestBannedTextMessage(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log"}`)
	if err := env.lists.AddText("badword"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	env.addMember("321", "spammer")

	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID:        "m1",
		ChannelID: "general",
		GuildID:   "g1",
		Author:    &discordgo.User{ID: "321", Username: "spammer"},
		Content:   "this contains badword here",
	})

	if calls := env.fake.CallsFor("delete_message"); len(calls) != 1 || calls[0].Detail != "general/m1" {
		t.Fatalf("expected message deletion, got %+v", calls)
	}
	if !env.lists.Load().HasIdentifier("321") {
		t.Fatalf("expected author appended to the ban list")
	}
	sent := env.fake.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Embed.Title, "Banned text detection") {
		t.Fatalf("expected one text log, got %+v", sent)
	}
	found := false
	for _, field := range sent[0].Embed.Fields {
		if strings.Contains(field.Value, "badword") && field.Name == "Reason" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected matched fragment in reason, got %+v", sent[0].Embed.Fields)
	}

	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID: "m2", ChannelID: "general", GuildID: "g1",
		Author:  &discordgo.User{ID: "321"},
		Content: "badword again",
	})
	if n := len(env.lists.Load().Identifiers); n != 1 {
		t.Fatalf("expected no duplicate identifier, got %d", n)
	}
	if len(env.fake.Sent()) != 1 {
		t.Fatalf("expected second text detection to be suppressed")
	}
}

func TestMentionByListedUser(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log", "default_punishment": "kick"}`)
	if err := env.lists.AddIdentifier("777"); err != nil {
		t.Fatalf("add: %v", err)
	}
	env.addMember("777", "pinger")

	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID: "m1", ChannelID: "general", GuildID: "g1",
		Author:   &discordgo.User{ID: "777", Username: "pinger"},
		Content:  "<@900> hi",
		Mentions: []*discordgo.User{{ID: "900"}},
	})

	if len(env.fake.CallsFor("kick")) != 1 {
		t.Fatalf("expected kick, got %+v", env.fake.Calls())
	}
	if len(env.fake.CallsFor("delete_message")) != 1 {
		t.Fatalf("expected message deleted")
	}
	sent := env.fake.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Embed.Title, "Mention detection") {
		t.Fatalf("expected mention log, got %+v", sent)
	}
}

func TestMessageIgnoresBotsAndAdmins(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log"}`)
	if err := env.lists.AddText("badword"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	env.addMember("50", "mod", "staff")

	env.bot.handleMessage(context.Background(), &discordgo.Message{ID: "m1", ChannelID: "general", GuildID: "g1", Author: &discordgo.User{ID: "60", Bot: true}, Content: "badword"})
	env.bot.handleMessage(context.Background(), &discordgo.Message{ID: "m2", ChannelID: "general", GuildID: "g1", Author: &discordgo.User{ID: "50"}, Content: "badword"})
	env.bot.handleMessage(context.Background(), &discordgo.Message{ID: "m3", ChannelID: "dm", Author: &discordgo.User{ID: "70"}, Content: "badword"})

	if calls := env.fake.Calls(); len(calls) != 0 {
		t.Fatalf("expected no platform mutations, got %+v", calls)
	}
	if len(env.lists.Load().Identifiers) != 0 {
		t.Fatalf("expected no auto-listing")
	}
}

func TestNonMemberTextDetectionStillLogsAndBans(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log", "danger_role_id": "danger"}`)
	if err := env.lists.AddText("scam"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	env.fake.Users["404"] = &discordgo.User{ID: "404", Username: "ghost"}

	env.bot.handleMessage(context.Background(), &discordgo.Message{ID: "m1", ChannelID: "general", GuildID: "g1", Author: &discordgo.User{ID: "404", Username: "ghost"}, Content: "SCAM link"})

	if len(env.fake.CallsFor("add_role")) != 0 {
		t.Fatalf("danger role needs a member")
	}
	if !env.fake.Banned("g1", "404") || len(env.fake.Sent()) != 1 {
		t.Fatalf("expected log and ban for non-member author")
	}
}

func TestMessageAdminExemptWhenMemberLookupFails(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log"}`)
	if err := env.lists.AddText("badword"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	env.addMember("50", "mod", "staff")
	env.fake.SetError("member", errors.New("503 upstream"))

	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID: "m1", ChannelID: "general", GuildID: "g1",
		Author:  &discordgo.User{ID: "50", Username: "mod"},
		Member:  &discordgo.Member{Roles: []string{"staff"}},
		Content: "badword",
	})
	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID: "m2", ChannelID: "general", GuildID: "g1",
		Author:  &discordgo.User{ID: "50", Username: "mod"},
		Content: "badword",
	})

	if calls := env.fake.Calls(); len(calls) != 0 {
		t.Fatalf("expected no action while the member is unknown, got %+v", calls)
	}
	if env.lists.Load().HasIdentifier("50") {
		t.Fatalf("admin must not be auto-listed")
	}
}

func TestMessageUsesGatewayMemberOnLookupFailure(t *testing.T) {
	env := newTestEnv(t, `{"log_channel_id": "log"}`)
	if err := env.lists.AddText("badword"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	env.fake.Users["60"] = &discordgo.User{ID: "60", Username: "spammer"}
	env.fake.SetError("member", errors.New("503 upstream"))

	env.bot.handleMessage(context.Background(), &discordgo.Message{
		ID: "m1", ChannelID: "general", GuildID: "g1",
		Author:  &discordgo.User{ID: "60", Username: "spammer"},
		Member:  &discordgo.Member{},
		Content: "badword",
	})

	if !env.fake.Banned("g1", "60") || !env.lists.Load().HasIdentifier("60") {
		t.Fatalf("expected regular member detected via the gateway member")
	}
}

func TestMemberForUserReturnsCopy(t *testing.T) {
	env := newTestEnv(t, `{}`)
	stored := env.addMember("70", "someone")

	member, err := env.bot.memberForUser("g1", "70")
	if err != nil || member == nil {
		t.Fatalf("lookup: %v", err)
	}
	if member == stored {
		t.Fatalf("expected a copy of the cached member")
	}
	member, err = env.bot.memberForUser("g1", "71")
	if err != nil || member != nil {
		t.Fatalf("non-member: expected nil without error, got %v %v", member, err)
	}
}
