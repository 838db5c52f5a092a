package lexer

import (
	"fmt"
	"unicode"

	"github.com/pkg/errors"
	"github.com/xplshn/pasem/pkg/token"
)

// SyntaxError is the cause of every error the lexer and parser return; it
// locates the offending token.
type SyntaxError struct {
	Tok token.Token
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// Errorf builds a SyntaxError at tok with stack information attached.
func Errorf(tok token.Token, format string, args ...interface{}) error {
	return errors.WithStack(&SyntaxError{Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

// Lexer splits a tree description into parentheses, numbers and symbols.
// Operators such as '+' and ':=' are ordinary symbols here; the parser
// gives them meaning by position.
type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peekNext())) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	switch ch {
	case '(':
		l.advance()
		return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
	case ')':
		l.advance()
		return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
	}

	for !l.isAtEnd() && isSymbolRune(l.peek()) {
		l.advance()
	}
	if l.pos == startPos {
		l.advance()
		return token.Token{}, Errorf(l.makeToken(token.EOF, "", startPos, startCol, startLine), "unexpected character '%c'", ch)
	}
	return l.makeToken(token.Ident, string(l.source[startPos:l.pos]), startPos, startCol, startLine), nil
}

// All lexes the whole source, ending with the EOF token.
func (l *Lexer) All() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func isSymbolRune(r rune) bool {
	switch r {
	case '(', ')', ';':
		return false
	}
	return unicode.IsGraphic(r) && !unicode.IsSpace(r)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch ch := l.peek(); {
		case ch == ';':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(ch):
			l.advance()
		default:
			return
		}
	}
}

// numberLiteral reads [-]digits[.digits][e[+-]digits]. A fraction or an
// exponent makes it a real.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	isFloat := false
	if l.peek() == '-' {
		l.advance()
	}
	l.digits()

	if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
		isFloat = true
		l.advance()
		l.digits()
	}
	if p := l.peek(); p == 'e' || p == 'E' {
		next := l.peekNext()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			if !unicode.IsDigit(l.peek()) {
				return token.Token{}, Errorf(l.makeToken(token.Number, "", startPos, startCol, startLine), "exponent has no digits")
			}
			l.digits()
		}
	}

	tokType := token.Number
	if isFloat {
		tokType = token.FloatNumber
	}
	tok := l.makeToken(tokType, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	if !l.isAtEnd() && isSymbolRune(l.peek()) {
		for !l.isAtEnd() && isSymbolRune(l.peek()) {
			l.advance()
		}
		bad := l.makeToken(tokType, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
		return token.Token{}, Errorf(bad, "malformed number '%s'", bad.Value)
	}
	return tok, nil
}

func (l *Lexer) digits() {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
}
