package dxf

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a target format revision. Its value is the numeric part of the
// $ACADVER string (AC1015 is 1015), so versions order naturally and an
// unknown future revision compares greater than every known one.
type Version int

// Known format revisions.
const (
	R10   Version = 1006
	R12   Version = 1009 // also written by R11
	R13   Version = 1012
	R14   Version = 1014
	R2000 Version = 1015
	R2004 Version = 1018
	R2007 Version = 1021
	R2010 Version = 1024
	R2013 Version = 1027
	R2018 Version = 1032

	R11    = R12
	Latest = R2018
)

var versionNames = []struct {
	v    Version
	name string
}{
	{R10, "R10"},
	{R12, "R12"},
	{R13, "R13"},
	{R14, "R14"},
	{R2000, "R2000"},
	{R2004, "R2004"},
	{R2007, "R2007"},
	{R2010, "R2010"},
	{R2013, "R2013"},
	{R2018, "R2018"},
}

// String returns the release name for known versions and the $ACADVER
// string otherwise.
func (v Version) String() string {
	for _, n := range versionNames {
		if n.v == v {
			return n.name
		}
	}
	return v.ACADVer()
}

// ACADVer returns the header string identifying v, such as "AC1015".
func (v Version) ACADVer() string {
	return "AC" + strconv.Itoa(int(v))
}

// Known reports whether v is one of the enumerated releases.
func (v Version) Known() bool {
	for _, n := range versionNames {
		if n.v == v {
			return true
		}
	}
	return false
}

// ParseVersion accepts "AC1015", "R2000", "2000" and "R11".
func ParseVersion(s string) (Version, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "AC"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < int(R10) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
		}
		return Version(n), nil
	}
	if s == "R11" || s == "11" {
		return R11, nil
	}
	name := s
	if !strings.HasPrefix(name, "R") {
		name = "R" + name
	}
	for _, n := range versionNames {
		if n.name == name {
			return n.v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
}

// MarshalText implements encoding.TextMarshaler so versions read naturally
// in YAML and JSON.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	p, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// Applies reports whether an item gated by [since, until] is valid at v.
// A zero until means the range is open-ended.
func Applies(since, until, v Version) bool {
	return v >= since && (until == 0 || v <= until)
}
