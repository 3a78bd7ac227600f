package dxf

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// grammarCache avoids recompiling a schema's code index on every record.
// Schemas are immutable, so the pointer is a stable key. Entries are never
// evicted: schemas are meant to be built once and shared, and a program
// that builds them per request keeps every one alive.
var grammarCache = xsync.NewMap[*Schema, *grammar]()

// grammar is the compiled, read-only index of one Schema.
type grammar struct {
	s        *Schema
	byCode   map[int][]int    // code -> field indices, ascending
	markers  map[string]int   // markerKey -> marker index
	sections map[string][]int // section -> field indices in schema order
	groups   map[string][]int // repeat group -> start index, then members
	slots    map[string]bool  // child slots filled by markers or selectors
	defaults []any            // canonical default per field
	inherit  []int            // DefaultFrom source index per field, or -1
}

// grammarFor returns the compiled grammar of s, compiling it on first use.
func grammarFor(s *Schema) (*grammar, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if g, ok := grammarCache.Load(s); ok {
		return g, nil
	}
	g, err := compile(s)
	if err != nil {
		return nil, err
	}
	grammarCache.Store(s, g)
	return g, nil
}

func compile(s *Schema) (*grammar, error) {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidSchema, s.Kind, fmt.Sprintf(format, args...))
	}
	if s.Kind == "" {
		return nil, fmt.Errorf("%w: schema without kind", ErrInvalidSchema)
	}

	g := &grammar{
		s:        s,
		byCode:   make(map[int][]int),
		markers:  make(map[string]int, len(s.Markers)),
		sections: make(map[string][]int),
		groups:   make(map[string][]int),
		slots:    make(map[string]bool),
		defaults: make([]any, len(s.Fields)),
		inherit:  make([]int, len(s.Fields)),
	}

	for i := range s.Markers {
		m := &s.Markers[i]
		if m.Name == "" {
			return nil, bad("marker %d has no name", i)
		}
		if code := m.GroupCode(); code != CodeSubclass && code != CodeAppGroup {
			return nil, bad("marker %q uses code %d", m.Name, code)
		}
		key := markerKey(m.GroupCode(), m.Name)
		if _, dup := g.markers[key]; dup {
			return nil, bad("duplicate marker %q", m.Name)
		}
		g.markers[key] = i
		if m.Nested != nil {
			g.slots[m.SlotName()] = true
		}
	}

	names := make(map[string]bool, len(s.Fields))
	starts := make(map[string]int)
	for i := range s.Fields {
		d := &s.Fields[i]
		switch {
		case d.Name == "":
			return nil, bad("field with code %d has no name", d.Code)
		case names[d.Name]:
			return nil, bad("duplicate field %q", d.Name)
		case d.Kind < KindInteger || d.Kind > KindHandle:
			return nil, bad("field %q has no kind", d.Name)
		}
		switch d.Code {
		case CodeSentinel, CodeSubclass, CodeAppGroup, CodeComment:
			return nil, bad("field %q uses reserved code %d", d.Name, d.Code)
		}
		if s.HasTerminator() && d.Code == s.Terminator {
			return nil, bad("field %q uses the terminator code %d", d.Name, d.Code)
		}
		if d.Section != "" && s.Marker(d.Section) == nil {
			return nil, bad("field %q is written after unknown marker %q", d.Name, d.Section)
		}
		names[d.Name] = true

		if d.Default != nil {
			c, ok := d.Kind.Canonical(d.Default)
			if !ok {
				return nil, bad("field %q default %v is not %v", d.Name, d.Default, d.Kind)
			}
			g.defaults[i] = c
		} else {
			g.defaults[i] = d.Kind.Zero()
		}

		switch d.Role {
		case RoleRepeatStart:
			if d.Group == "" {
				return nil, bad("repeat field %q has no group", d.Name)
			}
			if _, dup := starts[d.Group]; dup {
				return nil, bad("group %q has two leading codes", d.Group)
			}
			starts[d.Group] = i
		case RoleRepeatMember, RoleCount:
			if d.Group == "" {
				return nil, bad("field %q has no group", d.Name)
			}
		case RoleSelector:
			if d.Group == "" {
				return nil, bad("selector %q has no slot", d.Name)
			}
			if len(d.Cases) == 0 && d.DefaultCase == nil {
				return nil, bad("selector %q has no cases", d.Name)
			}
			for k, c := range d.Cases {
				if c == nil {
					return nil, bad("selector %q case %q is nil", d.Name, k)
				}
			}
			g.slots[d.Group] = true
		case RoleScalar:
		default:
			return nil, bad("field %q has unknown role %d", d.Name, d.Role)
		}

		g.byCode[d.Code] = append(g.byCode[d.Code], i)
		g.sections[d.Section] = append(g.sections[d.Section], i)
	}

	for group, start := range starts {
		g.groups[group] = []int{start}
	}
	for i := range s.Fields {
		d := &s.Fields[i]
		switch d.Role {
		case RoleRepeatMember:
			idx, ok := g.groups[d.Group]
			if !ok {
				return nil, bad("member %q of group %q has no leading code", d.Name, d.Group)
			}
			g.groups[d.Group] = append(idx, i)
		case RoleCount:
			if _, ok := starts[d.Group]; !ok && !g.slots[d.Group] {
				return nil, bad("count %q refers to unknown group %q", d.Name, d.Group)
			}
		}
	}
	for _, p := range s.Pairs {
		for _, group := range p {
			if _, ok := g.groups[group]; !ok {
				return nil, bad("pair refers to unknown group %q", group)
			}
		}
	}

	for i := range s.Fields {
		d := &s.Fields[i]
		g.inherit[i] = -1
		if d.DefaultFrom == "" {
			continue
		}
		if d.Role != RoleRepeatMember {
			return nil, bad("field %q takes its default from %q but is not a repeat member", d.Name, d.DefaultFrom)
		}
		j := slices.IndexFunc(s.Fields, func(f FieldDescriptor) bool { return f.Name == d.DefaultFrom })
		if j < 0 || s.Fields[j].Role != RoleScalar || s.Fields[j].Kind != d.Kind {
			return nil, bad("field %q takes its default from %q, which is not a %v scalar", d.Name, d.DefaultFrom, d.Kind)
		}
		g.inherit[i] = j
	}

	if r := s.Follows; r != nil {
		switch {
		case len(r.Members) == 0 || slices.Contains(r.Members, nil):
			return nil, bad("run has no member grammars")
		case r.End == nil:
			return nil, bad("run has no closing grammar")
		case r.Slot == "" || r.Slot == r.EndSlotName():
			return nil, bad("run slots %q and %q must differ", r.Slot, r.EndSlotName())
		case g.slots[r.Slot] || g.slots[r.EndSlotName()]:
			return nil, bad("run slot is already used by a marker or selector")
		case r.member(r.End.Kind) != nil:
			return nil, bad("run member %q is also its closing kind", r.End.Kind)
		}
		if r.When != "" {
			d := s.Field(r.When)
			if d == nil || d.Role != RoleScalar || (d.Kind != KindInteger && d.Kind != KindFlags) {
				return nil, bad("run flag %q is not an integer scalar", r.When)
			}
		}
	}
	return g, nil
}

// memberDefault returns the default of repeat member i within e: the value
// of its DefaultFrom scalar, if any.
func (g *grammar) memberDefault(i int, e *Entity) any {
	j := g.inherit[i]
	if j < 0 {
		return g.defaults[i]
	}
	if v, ok := e.Fields[g.s.Fields[j].Name]; ok {
		if c, ok := g.s.Fields[j].Kind.Canonical(v); ok {
			return c
		}
	}
	return g.defaults[j]
}

// follows reports whether the run of e is present.
func (g *grammar) follows(e *Entity) bool {
	r := g.s.Follows
	if r == nil {
		return false
	}
	if r.When == "" {
		return true
	}
	n, _ := numeric(e.Fields[r.When])
	return n != 0
}

// runFlag is the value of the run flag the encoder derives from e.
func runFlag(e *Entity, r *Run) int64 {
	if len(e.Children[r.Slot]) > 0 {
		return 1
	}
	return 0
}

// field returns the descriptor at index i.
func (g *grammar) field(i int) *FieldDescriptor { return &g.s.Fields[i] }

// ambiguous reports whether code is shared by several descriptors.
func (g *grammar) ambiguous(code int) bool { return len(g.byCode[code]) > 1 }

// resolve picks the descriptor for code given the index of the last matched
// descriptor. Shared codes resolve by position: the first candidate after
// the cursor, otherwise the last one at or before it.
func (g *grammar) resolve(code, cursor int) (int, bool) {
	cands := g.byCode[code]
	switch len(cands) {
	case 0:
		return -1, false
	case 1:
		return cands[0], true
	}
	for _, i := range cands {
		if i > cursor {
			return i, true
		}
	}
	for j := len(cands) - 1; j >= 0; j-- {
		if cands[j] <= cursor {
			return cands[j], true
		}
	}
	return cands[0], true
}

// marker returns the marker matching tok, if any.
func (g *grammar) marker(tok Token) (*Marker, bool) {
	if tok.Code != CodeSubclass && tok.Code != CodeAppGroup {
		return nil, false
	}
	i, ok := g.markers[markerKey(tok.Code, tok.Value)]
	if !ok {
		return nil, false
	}
	return &g.s.Markers[i], true
}

// knows reports whether tok would be consumed by this grammar.
func (g *grammar) knows(tok Token) bool {
	if _, ok := g.marker(tok); ok {
		return true
	}
	if g.terminates(tok) {
		return true
	}
	return len(g.byCode[tok.Code]) > 0
}

// terminates reports whether tok is this grammar's own closing token.
func (g *grammar) terminates(tok Token) bool {
	if !g.s.HasTerminator() || tok.Code != g.s.Terminator {
		return false
	}
	return g.s.TerminatorValue == "" || tok.Value == g.s.TerminatorValue
}

// selectCase returns the child grammar a selector value opens.
func (d *FieldDescriptor) selectCase(key string) *Schema {
	if c, ok := d.Cases[key]; ok {
		return c
	}
	return d.DefaultCase
}

// caseKey finds the selector value that opens a child of the given kind.
func (d *FieldDescriptor) caseKey(kind string) (string, bool) {
	keys := make([]string, 0, len(d.Cases))
	for k, c := range d.Cases {
		if c.Kind == kind {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	// Several values may select one grammar; pick the smallest for stable output.
	best := keys[0]
	for _, k := range keys[1:] {
		if len(k) < len(best) || (len(k) == len(best) && k < best) {
			best = k
		}
	}
	return best, true
}

// selectorValue returns the selector value that opens a child of the given
// kind: the smallest matching case key, or the default when kind is the
// fallback grammar.
func (d *FieldDescriptor) selectorValue(kind string) (any, bool) {
	if key, ok := d.caseKey(kind); ok {
		v, err := d.Kind.Parse(key)
		return v, err == nil
	}
	if d.DefaultCase == nil || d.DefaultCase.Kind != kind {
		return nil, false
	}
	if d.Default != nil {
		return d.Kind.Canonical(d.Default)
	}
	return d.Kind.Zero(), true
}

// validateTree compiles s and every grammar reachable from it.
func validateTree(s *Schema, seen map[*Schema]bool) error {
	if seen[s] {
		return nil
	}
	seen[s] = true
	if _, err := grammarFor(s); err != nil {
		return err
	}
	for i := range s.Markers {
		if n := s.Markers[i].Nested; n != nil {
			if err := validateTree(n, seen); err != nil {
				return err
			}
		}
	}
	if r := s.Follows; r != nil {
		for _, m := range append(slices.Clone(r.Members), r.End) {
			if err := validateTree(m, seen); err != nil {
				return err
			}
		}
	}
	for i := range s.Fields {
		d := &s.Fields[i]
		if d.Role != RoleSelector {
			continue
		}
		for _, c := range d.Cases {
			if err := validateTree(c, seen); err != nil {
				return err
			}
		}
		if d.DefaultCase != nil {
			if err := validateTree(d.DefaultCase, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
