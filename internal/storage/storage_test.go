package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newListStore(t *testing.T) *ListStore {
	t.Helper()
	store, err := OpenBanList(filepath.Join(t.TempDir(), "ban_list.json"))
	if err != nil {
		t.Fatalf("open ban list: %v", err)
	}
	return store
}

func TestOpenBanListCreatesDocument(t *testing.T) {
	store := newListStore(t)
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read ban list: %v", err)
	}
	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode ban list: %v", err)
	}
	if doc["user_ids"] == nil || doc["texts"] == nil {
		t.Fatalf("expected empty lists, got %s", data)
	}
}

func TestLoadMissingOrBrokenDocumentIsEmpty(t *testing.T) {
	store := &ListStore{path: filepath.Join(t.TempDir(), "missing.json")}
	if list := store.Load(); len(list.Identifiers) != 0 || len(list.TextFragments) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	broken := newListStore(t)
	if err := os.WriteFile(broken.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if list := broken.Load(); len(list.Identifiers) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestIdentifierRoundTrip(t *testing.T) {
	store := newListStore(t)
	if store.Load().HasIdentifier("123") {
		t.Fatalf("did not expect 123 before add")
	}
	if err := store.AddIdentifier("123"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !store.Load().HasIdentifier("123") {
		t.Fatalf("expected 123 after add")
	}
	if err := store.RemoveIdentifier("123"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Load().HasIdentifier("123") {
		t.Fatalf("did not expect 123 after remove")
	}
	if err := store.RemoveIdentifier("123"); !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	store := newListStore(t)
	if err := store.AddIdentifier("999"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddIdentifier("999"); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	if err := store.AddText("badword"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	if err := store.AddText("badword"); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	list := store.Load()
	if len(list.Identifiers) != 1 || len(list.TextFragments) != 1 {
		t.Fatalf("expected single entries, got %+v", list)
	}
}

func TestRemoveTextKeepsOrder(t *testing.T) {
	store := newListStore(t)
	for _, text := range []string{"a", "b", "c"} {
		if err := store.AddText(text); err != nil {
			t.Fatalf("add %s: %v", text, err)
		}
	}
	if err := store.RemoveText("b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list := store.Load()
	if len(list.TextFragments) != 2 || list.TextFragments[0] != "a" || list.TextFragments[1] != "c" {
		t.Fatalf("unexpected fragments: %v", list.TextFragments)
	}
}

func TestEnsureIdentifierConcurrent(t *testing.T) {
	store := newListStore(t)
	var wg sync.WaitGroup
	added := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.EnsureIdentifier("42")
			if err != nil {
				t.Errorf("ensure: %v", err)
			}
			added <- ok
		}()
	}
	wg.Wait()
	close(added)

	count := 0
	for ok := range added {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one append, got %d", count)
	}
	if n := len(store.Load().Identifiers); n != 1 {
		t.Fatalf("expected one identifier, got %d", n)
	}
}

func TestNumericIdentifiersAreNormalized(t *testing.T) {
	store := newListStore(t)
	if err := os.WriteFile(store.Path(), []byte(`{"user_ids": [123456789012345678, "42"], "texts": ["spam"]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	list := store.Load()
	if !list.HasIdentifier("123456789012345678") || !list.HasIdentifier("42") {
		t.Fatalf("expected numeric and string ids, got %v", list.Identifiers)
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestOpenSettingsMissing(t *testing.T) {
	_, err := OpenSettings(filepath.Join(t.TempDir(), "config.json"))
	if !errors.Is(err, ErrSettingsMissing) {
		t.Fatalf("expected ErrSettingsMissing, got %v", err)
	}
}

func TestOpenSettingsDefaults(t *testing.T) {
	store, err := OpenSettings(writeSettings(t, `{"token": "abc"}`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	settings := store.Snapshot()
	if settings.Token != "abc" {
		t.Fatalf("expected token abc, got %q", settings.Token)
	}
	if settings.EffectivePunishment() != PunishBan || settings.TimeoutDurationMinutes != 60 {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
}

func TestSettingsMutatorsPersistAndKeepUnknownKeys(t *testing.T) {
	path := writeSettings(t, `{"token": "abc", "log_channel_id": 111, "custom": {"keep": true}}`)
	store, err := OpenSettings(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := store.Snapshot().LogChannelID; got != "111" {
		t.Fatalf("expected numeric channel id normalized, got %q", got)
	}
	if err := store.SetDangerRole("222"); err != nil {
		t.Fatalf("set danger role: %v", err)
	}
	if err := store.AddAdminRole("333"); err != nil {
		t.Fatalf("add admin role: %v", err)
	}
	if err := store.AddAdminRole("333"); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}

	reopened, err := OpenSettings(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	settings := reopened.Snapshot()
	if settings.DangerRoleID != "222" || !settings.HasAdminRole("333") || settings.Token != "abc" {
		t.Fatalf("unexpected persisted settings: %+v", settings)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc["custom"]; !ok {
		t.Fatalf("expected unknown key to survive, got %s", data)
	}

	if err := reopened.RemoveAdminRole("333"); err != nil {
		t.Fatalf("remove admin role: %v", err)
	}
	if err := reopened.RemoveAdminRole("333"); !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
}

func TestSetPunishmentValidation(t *testing.T) {
	store, err := OpenSettings(writeSettings(t, `{}`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.SetPunishment(PunishTimeout, 40321); !errors.Is(err, ErrTimeoutRange) {
		t.Fatalf("expected ErrTimeoutRange, got %v", err)
	}
	if _, err := store.SetPunishment("mute", 0); !errors.Is(err, ErrUnknownPunishment) {
		t.Fatalf("expected ErrUnknownPunishment, got %v", err)
	}
	if got := store.Snapshot().EffectivePunishment(); got != PunishBan {
		t.Fatalf("failed updates must not change settings, got %s", got)
	}

	settings, err := store.SetPunishment(PunishTimeout, 0)
	if err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if settings.TimeoutDurationMinutes != 60 {
		t.Fatalf("expected current duration kept, got %d", settings.TimeoutDurationMinutes)
	}
	settings, err = store.SetPunishment(PunishTimeout, 120)
	if err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if settings.DefaultPunishment != PunishTimeout || settings.TimeoutDurationMinutes != 120 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	settings, err = store.SetPunishment(PunishKick, 5)
	if err != nil {
		t.Fatalf("set kick: %v", err)
	}
	if settings.TimeoutDurationMinutes != 120 {
		t.Fatalf("kick must not touch timeout duration, got %d", settings.TimeoutDurationMinutes)
	}
}

func TestWriteDocumentReplacesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"token": "old"}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := writeDocument(path, map[string]string{"token": "new"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var doc map[string]string
	if err := readDocument(path, &doc); err != nil || doc["token"] != "new" {
		t.Fatalf("expected replaced document, got %v %v", doc, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected private file, got %o", perm)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}
