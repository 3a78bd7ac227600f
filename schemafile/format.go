package schemafile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/oy3o/dxf"
)

var ident = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// Format writes schemas in schema file syntax. Grammars only reachable
// through markers or selectors are written first as "schema" declarations,
// once each. Reading the output back with Parse and Build yields equivalent
// schemas.
func Format(w io.Writer, schemas ...*dxf.Schema) error {
	bw := bufio.NewWriter(w)
	f := &formatter{w: bw, top: make(map[*dxf.Schema]bool), done: make(map[*dxf.Schema]bool)}
	for _, s := range schemas {
		f.top[s] = true
	}
	for _, s := range schemas {
		f.helpers(s)
	}
	for i, s := range schemas {
		if i > 0 || len(f.done) > 0 {
			bw.WriteByte('\n')
		}
		f.decl("entity", s)
	}
	if f.err != nil {
		return f.err
	}
	return bw.Flush()
}

type formatter struct {
	w    *bufio.Writer
	top  map[*dxf.Schema]bool
	done map[*dxf.Schema]bool
	err  error
}

func (f *formatter) printf(format string, args ...any) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, format, args...)
}

// helpers writes the grammars s refers to, dependencies first.
func (f *formatter) helpers(s *dxf.Schema) {
	for _, r := range refs(s) {
		if f.top[r] || f.done[r] {
			continue
		}
		f.done[r] = true
		f.helpers(r)
		if len(f.done) > 1 {
			f.w.WriteByte('\n')
		}
		f.decl("schema", r)
	}
}

func refs(s *dxf.Schema) []*dxf.Schema {
	var out []*dxf.Schema
	for _, m := range s.Markers {
		if m.Nested != nil {
			out = append(out, m.Nested)
		}
	}
	if r := s.Follows; r != nil {
		out = append(out, r.Members...)
		out = append(out, r.End)
	}
	for _, d := range s.Fields {
		if d.Role != dxf.RoleSelector {
			continue
		}
		for _, k := range sortedKeys(d.Cases) {
			out = append(out, d.Cases[k])
		}
		if d.DefaultCase != nil {
			out = append(out, d.DefaultCase)
		}
	}
	return out
}

func (f *formatter) decl(keyword string, s *dxf.Schema) {
	f.printf("%s %s", keyword, name(s.Kind))
	if s.HasTerminator() {
		f.printf(" terminator %d", s.Terminator)
		if s.TerminatorValue != "" {
			f.printf(" %s", strconv.Quote(s.TerminatorValue))
		}
	}
	f.printf(" {\n")
	for _, m := range s.Markers {
		f.marker(&m)
	}

	for i := 0; i < len(s.Fields); {
		sec := s.Fields[i].Section
		j := i + 1
		for j < len(s.Fields) && s.Fields[j].Section == sec {
			j++
		}
		if sec == "" {
			for k := i; k < j; k++ {
				f.field("\t", &s.Fields[k])
			}
		} else {
			f.printf("\tsection %s {\n", name(sec))
			for k := i; k < j; k++ {
				f.field("\t\t", &s.Fields[k])
			}
			f.printf("\t}\n")
		}
		i = j
	}

	for _, p := range s.Pairs {
		f.printf("\tpair %s %s\n", p[0], p[1])
	}
	if r := s.Follows; r != nil {
		f.run(r)
	}
	for _, c := range s.Checks {
		f.check(&c)
	}
	f.printf("}\n")
}

func (f *formatter) run(r *dxf.Run) {
	kinds := make([]string, len(r.Members))
	for i, m := range r.Members {
		kinds[i] = name(m.Kind)
	}
	f.printf("\tfollows %s until %s slot %s", strings.Join(kinds, ", "), name(r.End.Kind), r.Slot)
	if r.EndSlot != "" {
		f.printf(" end %s", r.EndSlot)
	}
	if r.When != "" {
		f.printf(" when %s", r.When)
	}
	f.printf("\n")
}

func (f *formatter) marker(m *dxf.Marker) {
	f.printf("\tmarker")
	if m.Code != 0 {
		f.printf(" %d", m.Code)
	}
	f.printf(" %s%s", name(m.Name), formatVersions(m.Since, m.Until))
	if m.Nested != nil {
		f.printf(" nested %s", name(m.Nested.Kind))
	}
	if m.Slot != "" {
		f.printf(" slot %s", m.Slot)
	}
	f.printf("\n")
}

func (f *formatter) field(indent string, d *dxf.FieldDescriptor) {
	f.printf("%sfield %d %s %s", indent, d.Code, d.Name, d.Kind)
	if d.Default != nil {
		if v, ok := value(d.Kind, d.Default); ok {
			f.printf(" default %s", v)
		} else if f.err == nil {
			f.err = fmt.Errorf("%w: default %v of %s", ErrBadValue, d.Default, d.Name)
		}
	}
	if d.DefaultIfBlank != "" {
		f.printf(" blank %s", strconv.Quote(d.DefaultIfBlank))
	}
	f.printf("%s", formatVersions(d.Since, d.Until))
	if d.Required {
		f.printf(" required")
	}
	if d.Always {
		f.printf(" always")
	}
	if d.DefaultFrom != "" {
		f.printf(" inherit %s", d.DefaultFrom)
	}
	switch d.Role {
	case dxf.RoleRepeatStart:
		f.printf(" repeat %s", d.Group)
	case dxf.RoleRepeatMember:
		f.printf(" member %s", d.Group)
	case dxf.RoleCount:
		f.printf(" count %s", d.Group)
	case dxf.RoleSelector:
		f.printf(" select %s {", d.Group)
		for _, k := range sortedKeys(d.Cases) {
			f.printf(" %s: %s", key(d.Kind, k), name(d.Cases[k].Kind))
		}
		if d.DefaultCase != nil {
			f.printf(" default: %s", name(d.DefaultCase.Kind))
		}
		f.printf(" }")
	}
	f.printf("\n")
}

func (f *formatter) check(c *dxf.Check) {
	f.printf("\tcheck %s %s", c.Kind, strings.Join(c.Fields, ", "))
	if len(c.Against) > 0 {
		f.printf(" against %s", strings.Join(c.Against, ", "))
	}
	if c.Kind == dxf.CheckRange {
		f.printf(" %s %s", decimal(c.Min), decimal(c.Max))
	}
	f.printf("%s", formatVersions(c.Since, c.Until))
	if c.Message != "" {
		f.printf(" message %s", strconv.Quote(c.Message))
	}
	f.printf("\n")
}

func name(s string) string {
	if ident.MatchString(s) {
		return s
	}
	return strconv.Quote(s)
}

func formatVersions(since, until dxf.Version) string {
	var b strings.Builder
	if since != 0 {
		b.WriteString(" since " + since.String())
	}
	if until != 0 {
		b.WriteString(" until " + until.String())
	}
	return b.String()
}

// value renders a default so that it lexes back as the same literal kind.
func value(k dxf.FieldKind, v any) (string, bool) {
	c, ok := k.Canonical(v)
	if !ok {
		return "", false
	}
	switch c := c.(type) {
	case int64:
		return strconv.FormatInt(c, 10), true
	case float64:
		return decimal(c), true
	case string:
		return strconv.Quote(c), true
	case dxf.Flags:
		return strconv.FormatUint(uint64(c), 10), true
	case dxf.Handle:
		return strconv.Quote(c.String()), true
	}
	return "", false
}

func key(k dxf.FieldKind, s string) string {
	switch k {
	case dxf.KindText, dxf.KindHandle:
		return strconv.Quote(s)
	case dxf.KindReal:
		if !strings.ContainsAny(s, ".eE") {
			return s + ".0"
		}
	}
	return s
}

func decimal(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// sortedKeys orders case keys numerically where possible.
func sortedKeys(m map[string]*dxf.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return strings.Compare(a, b)
	})
	return keys
}
