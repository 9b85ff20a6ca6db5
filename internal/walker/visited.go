package walker

// Visited is the stack of type names being expanded on the current path
// from the root. A name on the stack is never expanded again.
type Visited struct {
	stack []string
}

// Push enters the expansion of name.
func (v *Visited) Push(name string) {
	v.stack = append(v.stack, name)
}

// Pop leaves the innermost expansion.
func (v *Visited) Pop() {
	if len(v.stack) > 0 {
		v.stack = v.stack[:len(v.stack)-1]
	}
}

// Contains reports whether name is being expanded.
func (v *Visited) Contains(name string) bool {
	for _, s := range v.stack {
		if s == name {
			return true
		}
	}
	return false
}

// Len returns the stack depth.
func (v *Visited) Len() int {
	return len(v.stack)
}

// EnumSet collects referenced enumeration names in first-seen order.
type EnumSet struct {
	order []string
	seen  map[string]struct{}
}

func NewEnumSet() *EnumSet {
	return &EnumSet{seen: make(map[string]struct{})}
}

// Add records name once.
func (s *EnumSet) Add(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
}

// AddAll records every name in names.
func (s *EnumSet) AddAll(names []string) {
	for _, n := range names {
		s.Add(n)
	}
}

// List returns the names in insertion order.
func (s *EnumSet) List() []string {
	return append([]string(nil), s.order...)
}
