package dxf

// Role tells the decode and encode engines how a field participates in a
// record.
type Role uint8

const (
	// RoleScalar fields hold one value per record; a later token overwrites
	// an earlier one.
	RoleScalar Role = iota
	// RoleRepeatStart is the leading code of a repeat group. Seeing it while
	// the open unit already holds it closes that unit and opens a new one.
	RoleRepeatStart
	// RoleRepeatMember binds into the open unit of its group.
	RoleRepeatMember
	// RoleCount is a derived count of a repeat group or child slot. It is
	// computed on encode and only checked on decode.
	RoleCount
	// RoleSelector opens a new child sub-record in slot Group whose grammar
	// is chosen by the value.
	RoleSelector
)

func (r Role) String() string {
	switch r {
	case RoleScalar:
		return "scalar"
	case RoleRepeatStart:
		return "repeat"
	case RoleRepeatMember:
		return "member"
	case RoleCount:
		return "count"
	case RoleSelector:
		return "selector"
	}
	return "role?"
}

// FieldDescriptor describes one group code of one grammar.
type FieldDescriptor struct {
	Code int
	Name string
	Kind FieldKind

	// Default is the value assumed when the code is absent. Nil means the
	// zero value of Kind. Values equal to Default are not written.
	Default any

	// Since and Until gate the field by version. A zero Until is open.
	Since, Until Version

	Role Role
	// Group names the repeat group (RoleRepeatStart, RoleRepeatMember), the
	// counted group or slot (RoleCount) or the child slot (RoleSelector).
	Group string
	// Section is the name of the marker this field is written after. Fields
	// with an empty Section come before every marker.
	Section string

	// Required fields must be present at encode time.
	Required bool
	// Always forces the field to be written even when it equals Default.
	Always bool
	// DefaultIfBlank replaces a blank text value on Normalize.
	DefaultIfBlank string
	// DefaultFrom names a scalar of the same grammar whose value is the
	// default of this repeat member. Members sharing a DefaultFrom are
	// written together: all of them when any differs, none otherwise.
	DefaultFrom string

	// Cases maps the formatted selector value to the child grammar.
	Cases map[string]*Schema
	// DefaultCase is used when no entry of Cases matches.
	DefaultCase *Schema
}

// AppliesTo reports whether d is valid at version v.
func (d *FieldDescriptor) AppliesTo(v Version) bool {
	return Applies(d.Since, d.Until, v)
}

// Marker is a subclass marker (code 100) or an application-defined group
// opening (code 102, "{NAME"). A marker with a Nested grammar opens a child
// sub-record that is read with that grammar until the grammar's own
// terminator, the record's sentinel, or a code only an enclosing grammar
// knows.
type Marker struct {
	Code         int // zero means CodeSubclass
	Name         string
	Since, Until Version
	Nested       *Schema
	// Slot is the child slot nested sub-records are stored under. Empty
	// means Nested.Kind.
	Slot string
}

// Expected reports whether m is written and expected at version v.
func (m *Marker) Expected(v Version) bool {
	return Applies(m.Since, m.Until, v)
}

// GroupCode returns the code the marker is written with.
func (m *Marker) GroupCode() int {
	if m.Code == 0 {
		return CodeSubclass
	}
	return m.Code
}

// SlotName returns the child slot used for nested sub-records.
func (m *Marker) SlotName() string {
	if m.Slot != "" {
		return m.Slot
	}
	if m.Nested != nil {
		return m.Nested.Kind
	}
	return m.Name
}

// Schema is the immutable grammar of one entity kind or nested sub-record.
// Schemas must not be modified once they have been used to decode or encode.
type Schema struct {
	Kind    string
	Markers []Marker
	Fields  []FieldDescriptor

	// Pairs lists repeat groups that are indexed together, such as control
	// points and their weights.
	Pairs [][2]string
	// Checks are run by Validate.
	Checks []Check

	// Terminator is the code that closes a nested grammar. The default,
	// CodeSentinel, closes it together with the enclosing record.
	Terminator int
	// TerminatorValue, when set, must match the terminator token's value.
	TerminatorValue string

	// Follows makes the records after this one part of it.
	Follows *Run
}

// Run describes the records a container owns: a sequence of member records
// written right after it and closed by a record of kind End, like the
// vertices of a POLYLINE followed by SEQEND.
type Run struct {
	Members []*Schema
	End     *Schema
	// Slot is the child slot the members are stored under.
	Slot string
	// EndSlot holds the closing record. Empty means "end".
	EndSlot string
	// When names an integer scalar of the container that tells whether the
	// run is present. The encoder derives it from the members. Empty means
	// the run always follows.
	When string
}

// EndSlotName returns the child slot of the closing record.
func (r *Run) EndSlotName() string {
	if r.EndSlot != "" {
		return r.EndSlot
	}
	return "end"
}

// member returns the member grammar of the given kind, or nil.
func (r *Run) member(kind string) *Schema {
	for _, m := range r.Members {
		if m != nil && m.Kind == kind {
			return m
		}
	}
	return nil
}

// HasTerminator reports whether the grammar has its own closing token.
func (s *Schema) HasTerminator() bool { return s.Terminator != CodeSentinel }

// Field returns the descriptor named name, or nil.
func (s *Schema) Field(name string) *FieldDescriptor {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Marker returns the marker named name, or nil.
func (s *Schema) Marker(name string) *Marker {
	for i := range s.Markers {
		if s.Markers[i].Name == name {
			return &s.Markers[i]
		}
	}
	return nil
}

// childSchema returns the grammar for a child stored in slot with kind.
func (s *Schema) childSchema(slot, kind string) *Schema {
	if r := s.Follows; r != nil {
		switch {
		case slot == r.Slot:
			return r.member(kind)
		case slot == r.EndSlotName() && r.End != nil && r.End.Kind == kind:
			return r.End
		}
	}
	for i := range s.Markers {
		m := &s.Markers[i]
		if m.Nested != nil && m.SlotName() == slot {
			return m.Nested
		}
	}
	for i := range s.Fields {
		d := &s.Fields[i]
		if d.Role != RoleSelector || d.Group != slot {
			continue
		}
		for _, c := range d.Cases {
			if c.Kind == kind {
				return c
			}
		}
		if d.DefaultCase != nil && d.DefaultCase.Kind == kind {
			return d.DefaultCase
		}
	}
	return nil
}
