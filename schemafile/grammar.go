package schemafile

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This is a grammar for schema files: a small text format describing entity
grammars for the dxf codec, so that kinds without a built-in table can be
read and written without recompiling.

	# comment
	schema ACAD_REACTORS terminator 102 "}" {
		field 330 handle handle repeat handles
	}

	entity THING {
		marker 102 "{ACAD_REACTORS" since R14 nested ACAD_REACTORS slot reactors
		marker AcDbEntity since R13
		field 5 handle handle
		section AcDbEntity {
			field 8 layer text default "0" blank "0" always
		}
		field 90 count integer count points in AcDbEntity
		field 10 x real repeat points in AcDbEntity
		field 20 y real member points always in AcDbEntity
		field 40 width real member points inherit default_width in AcDbEntity
		field 43 default_width real in AcDbEntity
		follows PART until END slot parts
		check nonempty layer
	}

Declarations may refer to each other in any order. "entity" declarations
become registry entries; "schema" declarations only serve as nested or
selected grammars.
*/

// nolint:gochecknoglobals
var (
	Lexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "Float", Pattern: `[+-]?([0-9]+\.[0-9]*([eE][+-]?[0-9]+)?|[0-9]+[eE][+-]?[0-9]+)`},
		{Name: "Integer", Pattern: `[+-]?[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
		{Name: "Punct", Pattern: `[{}:,]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	FileParser = participle.MustBuild[File](
		participle.Lexer(Lexer),
		participle.Unquote("String"),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
)

type File struct {
	Decls []*Decl `parser:"@@*"`
}

type Decl struct {
	Pos        lexer.Position
	Entity     bool        `parser:"( @'entity' | 'schema' )"`
	Kind       string      `parser:"@(Ident | String)"`
	Terminator *Terminator `parser:"@@?"`
	Items      []*Item     `parser:"'{' @@* '}'"`
}

type Terminator struct {
	Code  int     `parser:"'terminator' @Integer"`
	Value *string `parser:"@String?"`
}

type Item struct {
	Marker  *MarkerDecl  `parser:"  @@"`
	Section *SectionDecl `parser:"| @@"`
	Field   *FieldDecl   `parser:"| @@"`
	Pair    *PairDecl    `parser:"| @@"`
	Check   *CheckDecl   `parser:"| @@"`
	Follows *FollowsDecl `parser:"| @@"`
}

type MarkerDecl struct {
	Pos    lexer.Position
	Code   int     `parser:"'marker' @Integer?"`
	Name   string  `parser:"@(Ident | String)"`
	Range  Range   `parser:"@@"`
	Nested *string `parser:"( 'nested' @(Ident | String) )?"`
	Slot   *string `parser:"( 'slot' @Ident )?"`
}

type Range struct {
	Since *string `parser:"( 'since' @Ident )?"`
	Until *string `parser:"( 'until' @Ident )?"`
}

type SectionDecl struct {
	Name   string       `parser:"'section' @(Ident | String) '{'"`
	Fields []*FieldDecl `parser:"@@* '}'"`
}

type FieldDecl struct {
	Pos     lexer.Position
	Code    int            `parser:"'field' @Integer"`
	Name    string         `parser:"@Ident"`
	Kind    string         `parser:"@Ident"`
	Options []*FieldOption `parser:"@@*"`
}

type FieldOption struct {
	Default  *Value    `parser:"  'default' @@"`
	Blank    *string   `parser:"| 'blank' @String"`
	Since    *string   `parser:"| 'since' @Ident"`
	Until    *string   `parser:"| 'until' @Ident"`
	Required bool      `parser:"| @'required'"`
	Always   bool      `parser:"| @'always'"`
	Repeat   *string   `parser:"| 'repeat' @Ident"`
	Member   *string   `parser:"| 'member' @Ident"`
	Count    *string   `parser:"| 'count' @Ident"`
	In       *string   `parser:"| 'in' @(Ident | String)"`
	Inherit  *string   `parser:"| 'inherit' @Ident"`
	Select   *Selector `parser:"| @@"`
}

type Selector struct {
	Slot     string  `parser:"'select' @Ident '{'"`
	Cases    []*Case `parser:"@@*"`
	Fallback *string `parser:"( 'default' ':' @(Ident | String) )? '}'"`
}

type Case struct {
	Value Value  `parser:"@@ ':'"`
	Kind  string `parser:"@(Ident | String)"`
}

type Value struct {
	Float *float64 `parser:"  @Float"`
	Int   *int64   `parser:"| @Integer"`
	Str   *string  `parser:"| @String"`
}

// FollowsDecl declares the records a container owns.
type FollowsDecl struct {
	Pos     lexer.Position
	Members []string `parser:"'follows' @(Ident | String) ( ',' @(Ident | String) )*"`
	End     string   `parser:"'until' @(Ident | String)"`
	Slot    string   `parser:"'slot' @Ident"`
	EndSlot *string  `parser:"( 'end' @Ident )?"`
	When    *string  `parser:"( 'when' @Ident )?"`
}

type PairDecl struct {
	A string `parser:"'pair' @Ident"`
	B string `parser:"@Ident"`
}

type CheckDecl struct {
	Pos     lexer.Position
	Kind    string   `parser:"'check' @('nonempty' | 'nonzero' | 'distinct' | 'range')"`
	Fields  []string `parser:"@Ident ( ',' @Ident )*"`
	Against []string `parser:"( 'against' @Ident ( ',' @Ident )* )?"`
	Min     *Value   `parser:"( @@"`
	Max     *Value   `parser:"  @@ )?"`
	Range   Range    `parser:"@@"`
	Message *string  `parser:"( 'message' @String )?"`
}

// Parse parses one schema file. name is used in error positions.
func Parse(name string, src []byte) (*File, error) {
	return FileParser.ParseBytes(name, src)
}
