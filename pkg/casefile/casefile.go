// Package casefile reads semantic test cases written as Markdown. Each case
// starts at a "Test: name" heading and holds one pasem input fence, an
// optional flags fence and one or more assertion fences.
package casefile

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	InputFence = "pasem"
	FlagsFence = "flags"
)

// AssertionType is the language tag of an assertion fence
type AssertionType string

const (
	// AssertionChecked is the typed tree of every body after type checking
	AssertionChecked AssertionType = "checked"
	// AssertionFolded is the typed tree of every body after folding
	AssertionFolded AssertionType = "folded"
	// AssertionDiagnostics lists one diagnostic per line, or is empty
	AssertionDiagnostics AssertionType = "diagnostics"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type TestCase struct {
	Name       string
	Input      string
	Flags      string
	Line       int
	Assertions []Assertion
}

// Extract parses a Markdown document and returns its test cases in order.
func Extract(markdown []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []TestCase
	var current *TestCase
	flush := func() error {
		if current == nil {
			return nil
		}
		if err := validate(current); err != nil {
			return err
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{Name: strings.TrimPrefix(heading, "Test: "), Line: lineOf(n, markdown)}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			line := lineOf(n, markdown)
			if current == nil {
				if lang == "" {
					return ast.WalkContinue, nil
				}
				return ast.WalkStop, errors.Errorf("line %d: %s fence outside of a test case", line, lang)
			}
			content := strings.TrimRight(fenceContent(n, markdown), "\n")
			switch {
			case lang == InputFence:
				if current.Input != "" {
					return ast.WalkStop, errors.Errorf("line %d: second input fence in test '%s'", line, current.Name)
				}
				current.Input = content
			case lang == FlagsFence:
				current.Flags = strings.Join(strings.Fields(content), " ")
			case isAssertion(lang):
				current.Assertions = append(current.Assertions, Assertion{Type: AssertionType(lang), Content: content, Line: line})
			case lang != "":
				return ast.WalkStop, errors.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading test cases")
	}
	if err := flush(); err != nil {
		return nil, errors.Wrap(err, "reading test cases")
	}
	return cases, nil
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertionChecked, AssertionFolded, AssertionDiagnostics:
		return true
	}
	return false
}

func validate(tc *TestCase) error {
	if tc.Input == "" {
		return errors.Errorf("test '%s' has no %s fence", tc.Name, InputFence)
	}
	if len(tc.Assertions) == 0 {
		return errors.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line of node's first line of content
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
