package cache

import "sync"

// SideTable retains the last successfully observed value per sensor id with
// no expiry. It backs the backups dashboard's "Last Job Run" column: a
// transient channel-fetch failure must not blank out a value we already
// showed, so stale beats empty here. Construct one per process and inject it
// into the builders that need it.
type SideTable struct {
	mu     sync.Mutex
	values map[int]string
}

// NewSideTable creates an empty SideTable.
func NewSideTable() *SideTable {
	return &SideTable{values: make(map[int]string)}
}

// Remember stores value for id. Empty values are ignored so a failed fetch
// never overwrites a previously observed one.
func (t *SideTable) Remember(id int, value string) {
	if value == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[id] = value
}

// Last returns the last remembered value for id, or "" if none.
func (t *SideTable) Last(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[id]
}
