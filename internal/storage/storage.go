package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

var (
	ErrAlreadyListed     = errors.New("entry already listed")
	ErrNotListed         = errors.New("entry not listed")
	ErrSettingsMissing   = errors.New("settings document not found")
	ErrTimeoutRange      = fmt.Errorf("timeout must be between %d and %d minutes", MinTimeoutMinutes, MaxTimeoutMinutes)
	ErrUnknownPunishment = errors.New("unknown punishment")
)

// ID is a Discord snowflake kept as a string. Documents written by older
// versions store ids as JSON numbers, so both forms are accepted on read.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id %s: %w", n, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeDocument replaces the whole document atomically so readers never
// observe a partial write. The file may hold the bot token, so it is private.
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return renameio.WriteFile(path, data, 0o600)
}
