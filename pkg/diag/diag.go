// Package diag collects the diagnostics a compilation produces. Reporting
// never stops the compiler; the driver decides what to do with the totals.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/token"
	"golang.org/x/term"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

type Diagnostic struct {
	Tok      token.Token
	Severity Severity
	Warning  config.Warning // meaningful for warnings only
	Message  string
}

// String renders the diagnostic on one line without color or source excerpt
func (d Diagnostic) String() string {
	if !d.Tok.HasPos() {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Tok.Line, d.Tok.Column, d.Severity, d.Message)
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

type Sink struct {
	cfg         *config.Config
	out         io.Writer
	color       bool
	sourceFiles []SourceFileRecord
	diags       []Diagnostic
	errors      int
	warnings    int
}

// NewSink prints to out as diagnostics arrive; pass io.Discard to only
// collect them. Color is used when out is a terminal and NO_COLOR is unset.
func NewSink(cfg *config.Config, out io.Writer) *Sink {
	s := &Sink{cfg: cfg, out: out}
	if f, ok := out.(*os.File); ok && !cfg.NoColor {
		s.color = term.IsTerminal(int(f.Fd()))
	}
	return s
}

// SetSourceFiles stores the source code for all input files for rich error messages
func (s *Sink) SetSourceFiles(files []SourceFileRecord) {
	s.sourceFiles = files
}

func (s *Sink) Error(tok token.Token, format string, args ...interface{}) {
	s.report(Diagnostic{Tok: tok, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

// Warn records a warning if the corresponding warning is enabled
func (s *Sink) Warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !s.cfg.IsWarningEnabled(wt) {
		return
	}
	s.report(Diagnostic{Tok: tok, Severity: SeverityWarning, Warning: wt, Message: fmt.Sprintf(format, args...)})
}

func (s *Sink) report(d Diagnostic) {
	s.diags = append(s.diags, d)
	if d.Severity == SeverityError {
		s.errors++
	} else {
		s.warnings++
	}
	s.print(d)
}

func (s *Sink) ErrorCount() int   { return s.errors }
func (s *Sink) WarningCount() int { return s.warnings }

func (s *Sink) Diagnostics() []Diagnostic { return s.diags }

// Messages returns the one-line form of every diagnostic so far
func (s *Sink) Messages() []string {
	msgs := make([]string, len(s.diags))
	for i, d := range s.diags {
		msgs[i] = d.String()
	}
	return msgs
}

func (s *Sink) paint(code, text string) string {
	if !s.color {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

func (s *Sink) print(d Diagnostic) {
	if s.out == nil || s.out == io.Discard {
		return
	}
	label := s.paint("31", "error:")
	if d.Severity == SeverityWarning {
		label = s.paint("33", "warning:")
	}
	if d.Tok.HasPos() {
		filename := "unknown"
		if d.Tok.FileIndex >= 0 && d.Tok.FileIndex < len(s.sourceFiles) {
			filename = s.sourceFiles[d.Tok.FileIndex].Name
		}
		fmt.Fprintf(s.out, "%s:%d:%d: ", filename, d.Tok.Line, d.Tok.Column)
	}
	fmt.Fprintf(s.out, "%s %s", label, d.Message)
	if d.Severity == SeverityWarning {
		fmt.Fprintf(s.out, " [-W%s]", s.cfg.Warnings[d.Warning].Name)
	}
	fmt.Fprintln(s.out)
	s.printErrorLine(d.Tok)
}

// printErrorLine prints the source line and a caret indicating the error position
func (s *Sink) printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(s.sourceFiles) || !tok.HasPos() {
		return
	}

	content := s.sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(s.out, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	pad := tok.Column - 1
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(s.out, "  %s%s\n", strings.Repeat(" ", pad), s.paint("32", caret))
}

// InternalError marks a broken invariant inside the compiler itself, as
// opposed to a problem with the program being compiled.
type InternalError struct{ Msg string }

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// Fatalf aborts the current compilation by panicking with an *InternalError.
func Fatalf(format string, args ...interface{}) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}
