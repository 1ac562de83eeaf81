package storage

import (
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
)

// BanList is the document of banned subject ids and banned text fragments.
type BanList struct {
	Identifiers   []ID     `json:"user_ids"`
	TextFragments []string `json:"texts"`
}

func (l BanList) HasIdentifier(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, listed := range l.Identifiers {
		if listed.String() == id {
			return true
		}
	}
	return false
}

// IdentifierSet is used by callers that test many ids against one snapshot.
func (l BanList) IdentifierSet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.Identifiers))
	for _, id := range l.Identifiers {
		if id != "" {
			set[id.String()] = struct{}{}
		}
	}
	return set
}

func (l BanList) clone() BanList {
	return BanList{
		Identifiers:   append([]ID{}, l.Identifiers...),
		TextFragments: append([]string{}, l.TextFragments...),
	}
}

// ListStore persists the BanList. Every Load re-reads the file so edits made
// outside the process are picked up; mutations are serialized.
type ListStore struct {
	mu   sync.RWMutex
	path string
}

func OpenBanList(path string) (*ListStore, error) {
	s := &ListStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDocument(path, BanList{Identifiers: []ID{}, TextFragments: []string{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ListStore) Path() string {
	return s.path
}

// Load returns an empty list when the document is missing or unreadable.
func (s *ListStore) Load() BanList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked()
}

func (s *ListStore) loadLocked() BanList {
	var list BanList
	if err := readDocument(s.path, &list); err != nil {
		return BanList{Identifiers: []ID{}, TextFragments: []string{}}
	}
	if list.Identifiers == nil {
		list.Identifiers = []ID{}
	}
	if list.TextFragments == nil {
		list.TextFragments = []string{}
	}
	return list
}

func (s *ListStore) Save(list BanList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeDocument(s.path, list.clone())
}

// Update runs fn on a fresh copy of the list and persists the result while
// holding the write lock. Nothing is written when fn returns an error.
func (s *ListStore) Update(fn func(*BanList) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.loadLocked()
	if err := fn(&list); err != nil {
		return err
	}
	return writeDocument(s.path, list)
}

func (s *ListStore) AddIdentifier(id string) error {
	id = strings.TrimSpace(id)
	return s.Update(func(list *BanList) error {
		if list.HasIdentifier(id) {
			return ErrAlreadyListed
		}
		list.Identifiers = append(list.Identifiers, ID(id))
		return nil
	})
}

// EnsureIdentifier appends id unless it is already listed.
func (s *ListStore) EnsureIdentifier(id string) (bool, error) {
	err := s.AddIdentifier(id)
	if errors.Is(err, ErrAlreadyListed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ListStore) RemoveIdentifier(id string) error {
	id = strings.TrimSpace(id)
	return s.Update(func(list *BanList) error {
		if !list.HasIdentifier(id) {
			return ErrNotListed
		}
		list.Identifiers = slices.DeleteFunc(list.Identifiers, func(listed ID) bool {
			return listed.String() == id
		})
		return nil
	})
}

func (s *ListStore) AddText(text string) error {
	return s.Update(func(list *BanList) error {
		if slices.Contains(list.TextFragments, text) {
			return ErrAlreadyListed
		}
		list.TextFragments = append(list.TextFragments, text)
		return nil
	})
}

func (s *ListStore) RemoveText(text string) error {
	return s.Update(func(list *BanList) error {
		idx := slices.Index(list.TextFragments, text)
		if idx < 0 {
			return ErrNotListed
		}
		list.TextFragments = slices.Delete(list.TextFragments, idx, idx+1)
		return nil
	})
}
