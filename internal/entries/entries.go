// Package entries exposes the repeatable "entries" of multi-entry sections
// as bounded, user-controllable slots.
package entries

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/a3tai/formkey/internal/inventory"
	"github.com/a3tai/formkey/internal/structure"
)

var (
	// ErrNotMultiEntry is returned for sections with a single entry value.
	ErrNotMultiEntry = errors.New("section is not multi-entry")
	// ErrEntryOutOfRange is returned for entry numbers outside [0, maxEntries).
	ErrEntryOutOfRange = errors.New("entry out of range")
)

// Slot is one entry of a multi-entry section
type Slot struct {
	EntryNumber int      `json:"entryNumber"`
	FieldIDs    []string `json:"fieldIds"`
}

// Config describes a multi-entry section. Slots cover 0..MaxEntries-1;
// a slot with no fields is still addressable.
type Config struct {
	Section    string `json:"section"`
	MaxEntries int    `json:"maxEntries"`
	Slots      []Slot `json:"slots"`
}

// Derive groups inventory records by (section, entry), treating a nil entry
// as slot 0. Sections with more than one distinct entry value are returned.
func Derive(inv *inventory.Inventory) map[string]*Config {
	bySection := map[string]map[int][]string{}
	for _, rec := range inv.Sorted() {
		loc := rec.LogicalLocation
		if loc.Section == "" || loc.Section == structure.UnknownSection {
			continue
		}
		if bySection[loc.Section] == nil {
			bySection[loc.Section] = map[int][]string{}
		}
		e := loc.EntryOrZero()
		bySection[loc.Section][e] = append(bySection[loc.Section][e], rec.Fingerprint)
	}

	out := map[string]*Config{}
	for section, groups := range bySection {
		if len(groups) < 2 {
			continue
		}
		maxEntry := 0
		for e := range groups {
			if e > maxEntry {
				maxEntry = e
			}
		}
		cfg := &Config{Section: section, MaxEntries: maxEntry + 1}
		for e := 0; e <= maxEntry; e++ {
			cfg.Slots = append(cfg.Slots, Slot{EntryNumber: e, FieldIDs: groups[e]})
		}
		out[section] = cfg
	}
	return out
}

// State is a snapshot of one section's entry state
type State struct {
	Active   []int `json:"activeEntries"`
	Expanded []int `json:"expandedEntries"`
}

// IsActive reports whether entry n is active
func (s State) IsActive(n int) bool {
	for _, a := range s.Active {
		if a == n {
			return true
		}
	}
	return false
}

type sectionState struct {
	active   map[int]bool
	expanded map[int]bool
}

func newSectionState() *sectionState {
	return &sectionState{
		active:   map[int]bool{0: true},
		expanded: map[int]bool{0: true},
	}
}

func (s *sectionState) snapshot() State {
	return State{Active: sortedSet(s.active), Expanded: sortedSet(s.expanded)}
}

func sortedSet(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// Manager holds transient entry state for every multi-entry section. Entry 0
// is always active; entries are numbered and ordered ascending only.
type Manager struct {
	configs map[string]*Config
	states  map[string]*sectionState
	mutex   sync.Mutex
}

// NewManager creates a manager with every section in its initial state
func NewManager(configs map[string]*Config) *Manager {
	m := &Manager{configs: configs, states: make(map[string]*sectionState, len(configs))}
	for section := range configs {
		m.states[section] = newSectionState()
	}
	return m
}

// Sections returns the multi-entry section ids in order
func (m *Manager) Sections() []string {
	ids := make([]string, 0, len(m.configs))
	for id := range m.configs {
		ids = append(ids, id)
	}
	structure.SortSectionIDs(ids)
	return ids
}

// Config returns a section's entry configuration
func (m *Manager) Config(section string) (*Config, error) {
	cfg, ok := m.configs[section]
	if !ok {
		return nil, fmt.Errorf("section %s: %w", section, ErrNotMultiEntry)
	}
	return cfg, nil
}

func (m *Manager) lookup(section string, n int) (*Config, *sectionState, error) {
	cfg, err := m.Config(section)
	if err != nil {
		return nil, nil, err
	}
	if n < 0 || n >= cfg.MaxEntries {
		return nil, nil, fmt.Errorf("section %s entry %d (max %d): %w", section, n, cfg.MaxEntries, ErrEntryOutOfRange)
	}
	return cfg, m.states[section], nil
}

// State returns the current state of a section
func (m *Manager) State(section string) (State, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, err := m.Config(section); err != nil {
		return State{}, err
	}
	return m.states[section].snapshot(), nil
}

// AddNextEntry activates and expands the lowest inactive entry. It returns
// the new entry number, or -1 when every entry is already active.
func (m *Manager) AddNextEntry(section string) (int, State, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cfg, err := m.Config(section)
	if err != nil {
		return -1, State{}, err
	}
	st := m.states[section]
	for e := 0; e < cfg.MaxEntries; e++ {
		if st.active[e] {
			continue
		}
		st.active[e] = true
		st.expanded[e] = true
		return e, st.snapshot(), nil
	}
	return -1, st.snapshot(), nil
}

// RemoveEntry deactivates and collapses entry n and returns the field ids of
// its slot; the caller clears their values. Entry 0 is permanent and
// removing it, or an inactive entry, changes nothing.
func (m *Manager) RemoveEntry(section string, n int) ([]string, State, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cfg, st, err := m.lookup(section, n)
	if err != nil {
		return nil, State{}, err
	}
	if n == 0 || !st.active[n] {
		return nil, st.snapshot(), nil
	}
	delete(st.active, n)
	delete(st.expanded, n)
	return append([]string(nil), cfg.Slots[n].FieldIDs...), st.snapshot(), nil
}

// ToggleExpanded flips the expansion flag of entry n; activation is untouched.
func (m *Manager) ToggleExpanded(section string, n int) (State, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, st, err := m.lookup(section, n)
	if err != nil {
		return State{}, err
	}
	if st.expanded[n] {
		delete(st.expanded, n)
	} else {
		st.expanded[n] = true
	}
	return st.snapshot(), nil
}

// ActiveFieldIDs returns the field ids of every active entry of a section
func (m *Manager) ActiveFieldIDs(section string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cfg, err := m.Config(section)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, slot := range cfg.Slots {
		if m.states[section].active[slot.EntryNumber] {
			out = append(out, slot.FieldIDs...)
		}
	}
	return out, nil
}

// Restore replaces a section's state with a saved snapshot. Entry 0 stays
// active whatever the snapshot says; expansion is taken from the snapshot
// alone. Out-of-range entries are rejected.
func (m *Manager) Restore(section string, saved State) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cfg, err := m.Config(section)
	if err != nil {
		return err
	}
	st := &sectionState{
		active:   map[int]bool{0: true},
		expanded: map[int]bool{},
	}
	for _, n := range saved.Active {
		if n < 0 || n >= cfg.MaxEntries {
			return fmt.Errorf("section %s entry %d (max %d): %w", section, n, cfg.MaxEntries, ErrEntryOutOfRange)
		}
		st.active[n] = true
	}
	for _, n := range saved.Expanded {
		if n < 0 || n >= cfg.MaxEntries {
			return fmt.Errorf("section %s entry %d (max %d): %w", section, n, cfg.MaxEntries, ErrEntryOutOfRange)
		}
		st.expanded[n] = true
	}
	m.states[section] = st
	return nil
}

// Snapshot returns the state of every section
func (m *Manager) Snapshot() map[string]State {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make(map[string]State, len(m.states))
	for section, st := range m.states {
		out[section] = st.snapshot()
	}
	return out
}
