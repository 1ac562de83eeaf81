package suppress

import "sync"

const DefaultLimit = 1000

// Module remembers which (guild, subject, kind) triples were already logged.
// The whole set is dropped once it grows past the limit.
type Module struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	limit int
}

func New(limit int) *Module {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Module{seen: make(map[string]struct{}), limit: limit}
}

// ShouldLog records the key and reports true when it was not recorded yet.
func (m *Module) ShouldLog(guildID, subjectID, kind string) bool {
	key := guildID + ":" + subjectID + ":" + kind
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	if len(m.seen) > m.limit {
		m.seen = make(map[string]struct{})
	}
	return true
}

// Forget releases a key whose log could not be delivered.
func (m *Module) Forget(guildID, subjectID, kind string) {
	m.mu.Lock()
	delete(m.seen, guildID+":"+subjectID+":"+kind)
	m.mu.Unlock()
}

// Clear empties the set and returns how many keys it held.
func (m *Module) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(m.seen)
	m.seen = make(map[string]struct{})
	return count
}

func (m *Module) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
