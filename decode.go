package dxf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// frame is one active grammar on the decode stack.
type frame struct {
	g      *grammar
	e      *Entity
	open   map[string]Unit  // open unit per repeat group
	cursor int              // index of the last matched descriptor
	counts map[string]Token // declared counts by group or slot
}

func newFrame(g *grammar, e *Entity) *frame {
	return &frame{g: g, e: e, open: make(map[string]Unit), cursor: -1}
}

type decoder struct {
	src     TokenSource
	version Version
	stack   []*frame
	diags   Diagnostics
}

// Decode reads one record of kind s.Kind from src. The first token must be
// the type token (0, s.Kind). Decoding stops at the next sentinel, which is
// pushed back when src implements Unreader so the following record can
// start from it. When s owns a run of records (Schema.Follows), they are
// read too and stored as children.
//
// Recoverable problems are returned as diagnostics next to a best-effort
// entity. Only a malformed token, a kind mismatch or an input that ends
// before the sentinel abort the call.
func Decode(src TokenSource, s *Schema, v Version) (*Entity, Diagnostics, error) {
	g, err := grammarFor(s)
	if err != nil {
		return nil, nil, err
	}
	tok, err := src.Next()
	if err != nil {
		return nil, nil, err
	}

	d := &decoder{src: src, version: v}
	e, next, err := d.record(g, tok)
	if err != nil {
		return nil, d.diags, err
	}
	if u, ok := src.(Unreader); ok {
		if err := u.Unread(next); err != nil {
			return nil, d.diags, err
		}
	}
	return e, d.diags, nil
}

// record decodes the record opened by tok and the run it owns. It returns
// the sentinel that ends them.
func (d *decoder) record(g *grammar, tok Token) (*Entity, Token, error) {
	if tok.Code != CodeSentinel || tok.Value != g.s.Kind {
		return nil, tok, fmt.Errorf("%w: want (0, %s), got %v at line %d", ErrKindMismatch, g.s.Kind, tok, tok.Line)
	}
	root := NewEntity(g.s.Kind)
	d.stack = append(d.stack[:0], newFrame(g, root))

	var next Token
	for {
		tok, err := d.src.Next()
		if errors.Is(err, io.EOF) {
			return nil, tok, fmt.Errorf("%w: %s at line %d", ErrUnterminatedRecord, g.s.Kind, d.src.Line())
		}
		if err != nil {
			return nil, tok, err
		}
		if tok.IsSentinel() {
			next = tok
			break
		}
		if tok.Code == CodeComment {
			root.Comments = append(root.Comments, tok.Value)
			continue
		}
		if err := d.dispatch(tok); err != nil {
			return nil, tok, err
		}
	}
	for len(d.stack) > 0 {
		d.pop()
	}
	if g.follows(root) {
		return d.run(g.s.Follows, root, next)
	}
	return root, next, nil
}

// run reads the member records of owner starting at next, up to and
// including the closing record.
func (d *decoder) run(r *Run, owner *Entity, next Token) (*Entity, Token, error) {
	for {
		slot, s := r.Slot, r.member(next.Value)
		if s == nil {
			if next.Value != r.End.Kind {
				d.diags = append(d.diags, Diagnostic{
					Kind:   UnterminatedRun,
					Entity: owner.Kind,
					Code:   next.Code,
					Value:  next.Value,
					Line:   next.Line,
					Detail: "want " + r.End.Kind,
				})
				return owner, next, nil
			}
			slot, s = r.EndSlotName(), r.End
		}
		g, err := grammarFor(s)
		if err != nil {
			return nil, next, err
		}
		child, n, err := d.record(g, next)
		if err != nil {
			return nil, n, err
		}
		owner.AddChild(slot, child)
		next = n
		if s == r.End {
			return owner, next, nil
		}
	}
}

func (d *decoder) top() *frame { return d.stack[len(d.stack)-1] }

func (d *decoder) note(kind DiagnosticKind, f *frame, field string, tok Token, detail string) {
	d.diags = append(d.diags, Diagnostic{
		Kind:   kind,
		Entity: f.e.Kind,
		Field:  field,
		Code:   tok.Code,
		Value:  tok.Value,
		Line:   tok.Line,
		Detail: detail,
	})
}

// dispatch routes tok to the innermost grammar that knows it. A grammar
// with its own terminator stays open until that terminator or the sentinel,
// whatever its ancestors know.
func (d *decoder) dispatch(tok Token) error {
	for i := len(d.stack) - 1; i >= 0; i-- {
		f := d.stack[i]
		if f.g.knows(tok) {
			for len(d.stack) > i+1 {
				d.pop()
			}
			if f.g.terminates(tok) && len(d.stack) > 1 {
				d.pop()
				return nil
			}
			d.consume(f, tok)
			return nil
		}
		if f.g.s.HasTerminator() {
			break
		}
	}

	f := d.top()
	if tok.Code == CodeAppGroup && strings.HasPrefix(tok.Value, "{") {
		d.note(UnexpectedSubclass, f, "", tok, "application group skipped")
		return d.skipAppGroup()
	}
	if tok.Code == CodeSubclass || tok.Code == CodeAppGroup {
		d.note(UnexpectedSubclass, f, "", tok, "")
		return nil
	}
	d.note(UnknownCode, f, "", tok, "")
	return nil
}

// skipAppGroup discards tokens up to the closing "102 }" of an unknown
// application group. A sentinel ends the skip early and is pushed back.
func (d *decoder) skipAppGroup() error {
	for {
		tok, err := d.src.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s at line %d", ErrUnterminatedRecord, d.stack[0].e.Kind, d.src.Line())
		}
		if err != nil {
			return err
		}
		switch {
		case tok.IsSentinel():
			if u, ok := d.src.(Unreader); ok {
				return u.Unread(tok)
			}
			return fmt.Errorf("%w: %s at line %d", ErrUnterminatedRecord, d.stack[0].e.Kind, tok.Line)
		case tok.Code == CodeAppGroup && tok.Value == "}":
			return nil
		}
	}
}

// consume applies tok, which f's grammar knows, to f.
func (d *decoder) consume(f *frame, tok Token) {
	if m, ok := f.g.marker(tok); ok {
		if !m.Expected(d.version) {
			d.note(UnexpectedSubclass, f, "", tok, "not expected at "+d.version.String())
		}
		if m.Nested != nil {
			g, err := grammarFor(m.Nested)
			if err != nil {
				d.note(UnexpectedSubclass, f, "", tok, err.Error())
				return
			}
			child := NewEntity(m.Nested.Kind)
			f.e.AddChild(m.SlotName(), child)
			d.stack = append(d.stack, newFrame(g, child))
		}
		return
	}

	idx, _ := f.g.resolve(tok.Code, f.cursor)
	if f.g.ambiguous(tok.Code) {
		d.note(AmbiguousCode, f, f.g.field(idx).Name, tok, "resolved by position")
	}
	f.cursor = idx
	fd := f.g.field(idx)
	if !fd.AppliesTo(d.version) {
		d.note(OutOfVersion, f, fd.Name, tok, "not valid at "+d.version.String())
	}

	val, err := fd.Kind.Parse(tok.Value)
	if err != nil {
		d.note(FieldCoercion, f, fd.Name, tok, err.Error())
	}

	switch fd.Role {
	case RoleScalar:
		if err == nil {
			f.e.Fields[fd.Name] = val
		}

	case RoleCount:
		if f.counts == nil {
			f.counts = make(map[string]Token)
		}
		f.counts[fd.Group] = tok

	case RoleRepeatStart, RoleRepeatMember:
		if err != nil {
			// The token still marks a unit boundary.
			val = f.g.defaults[idx]
		}
		u := f.open[fd.Group]
		if u == nil || (fd.Role == RoleRepeatStart && hasKey(u, fd.Name)) {
			u = Unit{}
			f.open[fd.Group] = u
			f.e.AddUnit(fd.Group, u)
		}
		u[fd.Name] = val

	case RoleSelector:
		key := strings.TrimSpace(tok.Value)
		if err == nil {
			key, _ = fd.Kind.Format(val, DefaultPrecision)
		} else {
			val = f.g.defaults[idx]
		}
		cs := fd.selectCase(key)
		if cs == nil {
			d.note(UnknownCode, f, fd.Name, tok, "no grammar for selector value")
			return
		}
		g, gerr := grammarFor(cs)
		if gerr != nil {
			d.note(UnknownCode, f, fd.Name, tok, gerr.Error())
			return
		}
		child := NewEntity(cs.Kind)
		child.Fields[fd.Name] = val
		f.e.AddChild(fd.Group, child)
		d.stack = append(d.stack, newFrame(g, child))
	}
}

// pop closes the innermost frame: unit and scalar defaults are back-filled
// and declared counts and pairs are checked.
func (d *decoder) pop() {
	f := d.top()
	d.stack = d.stack[:len(d.stack)-1]
	g, e := f.g, f.e

	for i := range g.s.Fields {
		fd := g.field(i)
		if fd.Role != RoleScalar {
			continue
		}
		if _, ok := e.Fields[fd.Name]; !ok {
			e.Fields[fd.Name] = g.defaults[i]
		}
	}
	for group, idx := range g.groups {
		for _, u := range e.Groups[group] {
			for _, i := range idx {
				if _, ok := u[g.field(i).Name]; !ok {
					u[g.field(i).Name] = g.memberDefault(i, e)
				}
			}
		}
	}

	for group, tok := range f.counts {
		want, err := strconv.ParseInt(strings.TrimSpace(tok.Value), 10, 64)
		if err != nil {
			continue
		}
		got := len(e.Groups[group])
		if g.slots[group] {
			got = len(e.Children[group])
		}
		if int64(got) != want {
			d.note(CountMismatch, f, group, tok, fmt.Sprintf("declared %d, decoded %d", want, got))
		}
	}
	for _, p := range g.s.Pairs {
		a, b := len(e.Groups[p[0]]), len(e.Groups[p[1]])
		if a > 0 && b > 0 && a != b {
			d.diags = append(d.diags, Diagnostic{
				Kind:   PairMismatch,
				Entity: e.Kind,
				Field:  p[0] + "/" + p[1],
				Detail: fmt.Sprintf("%d %s, %d %s", a, p[0], b, p[1]),
			})
		}
	}
	e.tidy()
}

func hasKey(u Unit, k string) bool {
	_, ok := u[k]
	return ok
}

// Skip consumes one record of any kind up to, but not including, the
// sentinel that ends it. The sentinel is pushed back when src implements
// Unreader. It returns the record's kind and the number of tokens consumed,
// the type token included.
func Skip(src TokenSource) (kind string, n int, err error) {
	return skip(src, nil)
}

func skip(src TokenSource, visit func(Token)) (string, int, error) {
	tok, err := src.Next()
	if err != nil {
		return "", 0, err
	}
	if tok.Code != CodeSentinel {
		return "", 0, &MalformedTokenError{Line: tok.Line, Code: strconv.Itoa(tok.Code), Reason: "record does not start with a type token"}
	}
	kind, n := tok.Value, 1
	for {
		tok, err := src.Next()
		if errors.Is(err, io.EOF) {
			return kind, n, fmt.Errorf("%w: %s at line %d", ErrUnterminatedRecord, kind, src.Line())
		}
		if err != nil {
			return kind, n, err
		}
		if tok.IsSentinel() {
			if u, ok := src.(Unreader); ok {
				return kind, n, u.Unread(tok)
			}
			return kind, n, nil
		}
		n++
		if visit != nil {
			visit(tok)
		}
	}
}
