package dxf

import (
	"fmt"
	"strings"
)

// CheckKind selects a declarative validation rule.
type CheckKind uint8

const (
	// CheckNonEmpty rejects blank text fields.
	CheckNonEmpty CheckKind = iota + 1
	// CheckNonZero rejects numeric fields equal to zero.
	CheckNonZero
	// CheckDistinct rejects entities whose Fields equal Against pairwise,
	// such as a line whose start and end points coincide.
	CheckDistinct
	// CheckRange rejects numeric fields outside [Min, Max].
	CheckRange
)

func (k CheckKind) String() string {
	switch k {
	case CheckNonEmpty:
		return "nonempty"
	case CheckNonZero:
		return "nonzero"
	case CheckDistinct:
		return "distinct"
	case CheckRange:
		return "range"
	}
	return fmt.Sprintf("CheckKind(%d)", uint8(k))
}

// Check is one validation rule of a Schema.
type Check struct {
	Kind         CheckKind
	Fields       []string
	Against      []string
	Min, Max     float64
	Since, Until Version
	Message      string
}

func NonEmpty(field string) Check { return Check{Kind: CheckNonEmpty, Fields: []string{field}} }

func NonZero(field string) Check { return Check{Kind: CheckNonZero, Fields: []string{field}} }

func Distinct(fields, against []string) Check {
	return Check{Kind: CheckDistinct, Fields: fields, Against: against}
}

func InRange(field string, lo, hi float64) Check {
	return Check{Kind: CheckRange, Fields: []string{field}, Min: lo, Max: hi}
}

// ValidationError is one failed check. Path locates the entity inside a
// composite, e.g. "HATCH.paths[0].edges[2]".
type ValidationError struct {
	Path    string
	Fields  []string
	Check   CheckKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s (%s)", ErrInvalidEntity, e.Path, e.Message, strings.Join(e.Fields, ","))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEntity }

// ValidationErrors collects every failed check of one entity.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	switch len(es) {
	case 0:
		return "no validation errors"
	case 1:
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(es))
	for _, e := range es {
		b.WriteString("\n\t")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Validate runs the checks of s, and of the grammars of e's children, that
// apply at version v. It returns e unchanged when every check passes and a
// ValidationErrors otherwise. Absent fields are checked at their default,
// so Normalize usually runs first.
func Validate(e *Entity, s *Schema, v Version) (*Entity, error) {
	g, err := grammarFor(s)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ValidationErrors{{Path: s.Kind, Message: "entity is nil"}}
	}
	var errs ValidationErrors
	validate(e, g, v, s.Kind, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return e, nil
}

func validate(e *Entity, g *grammar, v Version, path string, errs *ValidationErrors) {
	for _, c := range g.s.Checks {
		if !Applies(c.Since, c.Until, v) {
			continue
		}
		if msg, ok := runCheck(c, e, g); !ok {
			if c.Message != "" {
				msg = c.Message
			}
			*errs = append(*errs, &ValidationError{Path: path, Fields: c.Fields, Check: c.Kind, Message: msg})
		}
	}
	for slot, kids := range e.Children {
		for i, kid := range kids {
			if kid == nil {
				continue
			}
			cs := g.s.childSchema(slot, kid.Kind)
			if cs == nil {
				continue
			}
			cg, err := grammarFor(cs)
			if err != nil {
				continue
			}
			validate(kid, cg, v, fmt.Sprintf("%s.%s[%d]", path, slot, i), errs)
		}
	}
}

// lookup returns the value of a scalar, or its default when absent.
func lookup(e *Entity, g *grammar, name string) any {
	if v, ok := e.Fields[name]; ok {
		return v
	}
	for i := range g.s.Fields {
		if g.s.Fields[i].Name == name {
			return g.defaults[i]
		}
	}
	return nil
}

func runCheck(c Check, e *Entity, g *grammar) (string, bool) {
	switch c.Kind {
	case CheckNonEmpty:
		for _, f := range c.Fields {
			if s, _ := lookup(e, g, f).(string); blank(s) {
				return f + " is empty", false
			}
		}
	case CheckNonZero:
		for _, f := range c.Fields {
			if n, ok := numeric(lookup(e, g, f)); ok && n == 0 {
				return f + " is zero", false
			}
		}
	case CheckRange:
		for _, f := range c.Fields {
			if n, ok := numeric(lookup(e, g, f)); ok && !within(n, c.Min, c.Max) {
				return fmt.Sprintf("%s %g is outside [%g, %g]", f, n, c.Min, c.Max), false
			}
		}
	case CheckDistinct:
		if len(c.Fields) != len(c.Against) {
			return "malformed distinct check", false
		}
		for i, f := range c.Fields {
			a, b := lookup(e, g, f), lookup(e, g, c.Against[i])
			if na, ok := numeric(a); ok {
				if nb, ok := numeric(b); !ok || na != nb {
					return "", true
				}
				continue
			}
			if a != b {
				return "", true
			}
		}
		return strings.Join(c.Fields, ",") + " equal " + strings.Join(c.Against, ","), false
	}
	return "", true
}
