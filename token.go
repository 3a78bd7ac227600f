package dxf

import (
	"fmt"
	"io"
)

// Reserved group codes. Every other code is schema-relative.
const (
	CodeSentinel = 0   // terminates a record and announces the next one
	CodeHandle   = 5   // entity handle
	CodeSubclass = 100 // subclass marker
	CodeAppGroup = 102 // application-defined group bracket, "{NAME" ... "}"
	CodeComment  = 999 // comment, valid anywhere
)

// EndOfFile is the value of the sentinel token that closes a stream.
const EndOfFile = "EOF"

// Token is one (group code, value) pair. Line is the 1-based line of the
// code line and only serves diagnostics.
type Token struct {
	Code  int
	Value string
	Line  int
}

func (t Token) String() string {
	return fmt.Sprintf("%d=%q", t.Code, t.Value)
}

// IsSentinel reports whether t terminates the current record.
func (t Token) IsSentinel() bool { return t.Code == CodeSentinel }

// TokenSource is the contract the decode engine needs from its input.
type TokenSource interface {
	// Next returns the next token, io.EOF at a clean end of input, or a
	// *MalformedTokenError.
	Next() (Token, error)
	// Line returns the number of lines consumed so far.
	Line() int
}

// Unreader is implemented by token sources that can take back one token.
// The decode engine uses it to hand a record's terminating sentinel to the
// record that follows.
type Unreader interface {
	Unread(Token) error
}

// Tokens is an in-memory TokenSource, handy for tests and for re-decoding
// tokens produced by another stage.
type Tokens struct {
	T       []Token
	N       int
	pending *Token
}

// NewTokens returns a TokenSource over ts. Zero Line values are filled in
// as if each token occupied two lines.
func NewTokens(ts ...Token) *Tokens {
	out := make([]Token, len(ts))
	for i, t := range ts {
		if t.Line == 0 {
			t.Line = 2*i + 1
		}
		out[i] = t
	}
	return &Tokens{T: out}
}

func (s *Tokens) Next() (Token, error) {
	if s.pending != nil {
		t := *s.pending
		s.pending = nil
		return t, nil
	}
	if s.N >= len(s.T) {
		return Token{}, io.EOF
	}
	t := s.T[s.N]
	s.N++
	return t, nil
}

func (s *Tokens) Unread(t Token) error {
	if s.pending != nil {
		return ErrPushbackFull
	}
	s.pending = &t
	return nil
}

func (s *Tokens) Line() int {
	if s.N == 0 {
		return 0
	}
	return s.T[s.N-1].Line + 1
}

// Remaining returns the tokens not yet consumed, including a pushed-back one.
func (s *Tokens) Remaining() []Token {
	rest := s.T[s.N:]
	if s.pending != nil {
		return append([]Token{*s.pending}, rest...)
	}
	return rest
}
