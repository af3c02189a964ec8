// v0
// internal/selection/selection.go
package selection

// Entry is one id/flag pair of the active-variable mapping.
type Entry struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// State tracks which catalog variables are active and which active variable
// is primary. The mapping is an ordered association seeded in catalog order:
// iteration (Entries, ActiveIDs) and the primary fallback both follow that
// order, and ids outside it are ignored by every operation.
//
// State is not safe for concurrent use; callers serialize access.
type State struct {
	order      []string
	active     map[string]bool
	primary    string
	editorOpen bool

	defaults       map[string]bool
	defaultPrimary string
}

// New builds a selection over ids (catalog order). initial supplies the
// starting flags; primary is kept only if it is active, otherwise the first
// active id becomes primary. The starting flags are remembered for Reset.
func New(ids []string, initial map[string]bool, primary string) *State {
	s := &State{
		active:   make(map[string]bool, len(ids)),
		defaults: make(map[string]bool, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := s.active[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.active[id] = initial[id]
		s.defaults[id] = initial[id]
	}
	s.primary = primary
	s.ensurePrimary()
	s.defaultPrimary = s.primary
	return s
}

// Toggle flips the active flag of id. Activation makes id primary;
// deactivating the primary hands it to the first remaining active id.
func (s *State) Toggle(id string) {
	wasActive, known := s.active[id]
	if !known {
		return
	}
	s.active[id] = !wasActive
	if !wasActive {
		s.primary = id
		return
	}
	if id == s.primary {
		s.primary = s.firstActive()
	}
}

// SetMany merges patch into the active flags. Ids missing from patch keep
// their flag. The primary survives if it is still active.
func (s *State) SetMany(patch map[string]bool) {
	for _, id := range s.order {
		if v, ok := patch[id]; ok {
			s.active[id] = v
		}
	}
	s.ensurePrimary()
}

// SetPrimary focuses id if it is active and is a no-op otherwise.
func (s *State) SetPrimary(id string) {
	if s.active[id] {
		s.primary = id
	}
}

// SetEditorOpen records whether the variable editor panel is shown.
func (s *State) SetEditorOpen(open bool) {
	s.editorOpen = open
}

// EditorOpen reports whether the variable editor panel is shown.
func (s *State) EditorOpen() bool { return s.editorOpen }

// Reset restores the flags and primary the state was created with.
func (s *State) Reset() {
	for _, id := range s.order {
		s.active[id] = s.defaults[id]
	}
	s.primary = s.defaultPrimary
	s.ensurePrimary()
}

// Defaults returns a copy of the flags the state was created with.
func (s *State) Defaults() map[string]bool {
	out := make(map[string]bool, len(s.defaults))
	for k, v := range s.defaults {
		out[k] = v
	}
	return out
}

// Primary returns the primary id and whether one is set.
func (s *State) Primary() (string, bool) {
	return s.primary, s.primary != ""
}

// IsActive reports whether id is active.
func (s *State) IsActive(id string) bool {
	return s.active[id]
}

// Known reports whether id belongs to the mapping.
func (s *State) Known(id string) bool {
	_, ok := s.active[id]
	return ok
}

// ActiveIDs returns the active ids in mapping order.
func (s *State) ActiveIDs() []string {
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.active[id] {
			out = append(out, id)
		}
	}
	return out
}

// Entries returns the whole mapping in order.
func (s *State) Entries() []Entry {
	out := make([]Entry, len(s.order))
	for i, id := range s.order {
		out[i] = Entry{ID: id, Active: s.active[id]}
	}
	return out
}

// Flags returns a copy of the mapping.
func (s *State) Flags() map[string]bool {
	out := make(map[string]bool, len(s.active))
	for k, v := range s.active {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	cp := &State{
		order:          append([]string(nil), s.order...),
		active:         s.Flags(),
		primary:        s.primary,
		editorOpen:     s.editorOpen,
		defaults:       s.Defaults(),
		defaultPrimary: s.defaultPrimary,
	}
	return cp
}

func (s *State) ensurePrimary() {
	if s.primary != "" && s.active[s.primary] {
		return
	}
	s.primary = s.firstActive()
}

func (s *State) firstActive() string {
	for _, id := range s.order {
		if s.active[id] {
			return id
		}
	}
	return ""
}
