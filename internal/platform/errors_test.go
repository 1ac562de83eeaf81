package platform

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not found", ErrNotFound, KindNotFound},
		{"not member", ErrNotMember, KindNotFound},
		{"state", discordgo.ErrStateNotFound, KindNotFound},
		{"forbidden", fmt.Errorf("ban: %w", ErrForbidden), KindForbidden},
		{"rest 404", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}, KindNotFound},
		{"rest 403", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}, KindForbidden},
		{"rest 500", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusInternalServerError}}, KindTransient},
		{"other", errors.New("connection reset"), KindTransient},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := Wrap("kick", ErrForbidden)
	var pe *Error
	if !errors.As(err, &pe) || pe.Op != "kick" || pe.Kind != KindForbidden {
		t.Fatalf("unexpected wrapped error: %#v", err)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected cause to be preserved")
	}
	if again := Wrap("other", err); again != err {
		t.Fatalf("expected classified errors to pass through")
	}
	if Wrap("noop", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestMemberRolePermissionsAndTopRole(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "g1",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionViewChannel, Position: 0},
			{ID: "mod", Permissions: discordgo.PermissionKickMembers, Position: 3},
			{ID: "admin", Permissions: discordgo.PermissionAdministrator, Position: 7},
		},
	}
	member := &discordgo.Member{Roles: []string{"mod"}}
	perms := MemberRolePermissions(guild, member)
	if perms&discordgo.PermissionKickMembers == 0 || perms&discordgo.PermissionViewChannel == 0 {
		t.Fatalf("expected everyone and mod permissions, got %d", perms)
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		t.Fatalf("did not expect administrator")
	}
	member.Roles = append(member.Roles, "admin", "deleted")
	if top := TopRolePosition(guild, member); top != 7 {
		t.Fatalf("expected top position 7, got %d", top)
	}
}
