package detector

import (
	"strings"

	"banguard/internal/storage"
	"banguard/internal/utils"
)

// Module matches subjects and message content against the ban list. The list
// is re-read on every call.
type Module struct {
	lists *storage.ListStore
}

func New(lists *storage.ListStore) *Module {
	return &Module{lists: lists}
}

func (m *Module) IdentifierMatches(subjectID string) bool {
	return m.lists.Load().HasIdentifier(subjectID)
}

// TextMatches returns the first listed fragment, in list order, found in
// content. Matching is case-insensitive and also runs against the normalized
// form of every link in the message.
func (m *Module) TextMatches(content string) (string, bool) {
	if content == "" {
		return "", false
	}
	return MatchFragment(m.lists.Load().TextFragments, content)
}

// MatchFragment skips the empty fragment, which would otherwise match every
// message.
func MatchFragment(fragments []string, content string) (string, bool) {
	lowered := strings.ToLower(content)
	var links []string
	linksParsed := false
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		needle := strings.ToLower(fragment)
		if strings.Contains(lowered, needle) {
			return fragment, true
		}
		if !linksParsed {
			links = utils.NormalizedLinks(content)
			linksParsed = true
		}
		for _, link := range links {
			if strings.Contains(link, needle) {
				return fragment, true
			}
		}
	}
	return "", false
}
