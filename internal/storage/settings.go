package storage

import (
	"encoding/json"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
)

type Punishment string

const (
	PunishBan     Punishment = "ban"
	PunishKick    Punishment = "kick"
	PunishTimeout Punishment = "timeout"
)

const (
	MinTimeoutMinutes     = 1
	MaxTimeoutMinutes     = 40320
	DefaultTimeoutMinutes = 60
)

func ParsePunishment(value string) (Punishment, bool) {
	switch Punishment(strings.ToLower(strings.TrimSpace(value))) {
	case PunishBan:
		return PunishBan, true
	case PunishKick:
		return PunishKick, true
	case PunishTimeout:
		return PunishTimeout, true
	default:
		return "", false
	}
}

// Settings is the process-wide moderation configuration stored in config.json.
type Settings struct {
	Token                  string     `json:"token,omitempty"`
	LogChannelID           ID         `json:"log_channel_id,omitempty"`
	DangerRoleID           ID         `json:"danger_role_id,omitempty"`
	AdminRoleIDs           []ID       `json:"admin_role_ids"`
	DefaultPunishment      Punishment `json:"default_punishment"`
	TimeoutDurationMinutes int        `json:"timeout_duration_minutes"`
}

// EffectivePunishment falls back to ban for unset or unknown values.
func (s Settings) EffectivePunishment() Punishment {
	if kind, ok := ParsePunishment(string(s.DefaultPunishment)); ok {
		return kind
	}
	return PunishBan
}

func (s Settings) HasAdminRole(roleID string) bool {
	for _, id := range s.AdminRoleIDs {
		if id.String() == roleID {
			return true
		}
	}
	return false
}

func (s Settings) clone() Settings {
	out := s
	out.AdminRoleIDs = append([]ID{}, s.AdminRoleIDs...)
	return out
}

// SettingsStore owns the Settings document. Mutators persist the whole
// document and only commit the change in memory once the write succeeded.
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current Settings
	extra   map[string]json.RawMessage
}

func OpenSettings(path string) (*SettingsStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSettingsMissing
	}
	if err != nil {
		return nil, err
	}

	extra := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	for _, key := range []string{"token", "log_channel_id", "danger_role_id", "admin_role_ids", "default_punishment", "timeout_duration_minutes"} {
		delete(extra, key)
	}

	if settings.DefaultPunishment == "" {
		settings.DefaultPunishment = PunishBan
	}
	if settings.TimeoutDurationMinutes == 0 {
		settings.TimeoutDurationMinutes = DefaultTimeoutMinutes
	}
	if settings.AdminRoleIDs == nil {
		settings.AdminRoleIDs = []ID{}
	}
	return &SettingsStore{path: path, current: settings, extra: extra}, nil
}

func (s *SettingsStore) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

func (s *SettingsStore) SetLogChannel(channelID string) error {
	return s.update(func(settings *Settings) error {
		settings.LogChannelID = ID(channelID)
		return nil
	})
}

func (s *SettingsStore) SetDangerRole(roleID string) error {
	return s.update(func(settings *Settings) error {
		settings.DangerRoleID = ID(roleID)
		return nil
	})
}

func (s *SettingsStore) AddAdminRole(roleID string) error {
	return s.update(func(settings *Settings) error {
		if settings.HasAdminRole(roleID) {
			return ErrAlreadyListed
		}
		settings.AdminRoleIDs = append(settings.AdminRoleIDs, ID(roleID))
		return nil
	})
}

func (s *SettingsStore) RemoveAdminRole(roleID string) error {
	return s.update(func(settings *Settings) error {
		if !settings.HasAdminRole(roleID) {
			return ErrNotListed
		}
		settings.AdminRoleIDs = slices.DeleteFunc(settings.AdminRoleIDs, func(id ID) bool {
			return id.String() == roleID
		})
		return nil
	})
}

// SetPunishment changes the global punishment. A zero timeoutMinutes keeps the
// current duration; the duration is only validated and stored for timeout.
func (s *SettingsStore) SetPunishment(kind Punishment, timeoutMinutes int) (Settings, error) {
	var result Settings
	err := s.update(func(settings *Settings) error {
		parsed, ok := ParsePunishment(string(kind))
		if !ok {
			return ErrUnknownPunishment
		}
		if parsed == PunishTimeout && timeoutMinutes != 0 {
			if timeoutMinutes < MinTimeoutMinutes || timeoutMinutes > MaxTimeoutMinutes {
				return ErrTimeoutRange
			}
			settings.TimeoutDurationMinutes = timeoutMinutes
		}
		settings.DefaultPunishment = parsed
		result = settings.clone()
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return result, nil
}

func (s *SettingsStore) update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *SettingsStore) persistLocked(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	doc := make(map[string]json.RawMessage, len(s.extra)+6)
	for key, value := range s.extra {
		doc[key] = value
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, value := range fields {
		doc[key] = value
	}
	return writeDocument(s.path, doc)
}
