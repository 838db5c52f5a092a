package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/pasem/pkg/config"
)

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	be.Err(t, os.WriteFile(path, []byte(src), 0o644), nil)
	return path
}

func TestRunPrintsFoldedTrees(t *testing.T) {
	path := writeSource(t, "ok.sx", `(program p
  (var x integer)
  (procedure q () (body))
  (body (:= x (+ 1 2)) (call q)))`)

	var out bytes.Buffer
	status, err := run(config.NewConfig(), options{types: true}, []string{path}, &out)
	be.Err(t, err, nil)
	be.Equal(t, status, 0)

	want := strings.Join([]string{
		"; program p",
		"(body q",
		")",
		"(body p",
		"  (:= x:integer 3:integer)",
		"  (call q:void)",
		")",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunUntypedWithFingerprints(t *testing.T) {
	path := writeSource(t, "fp.sx", "(program p (var x integer) (body (:= x (* 2 2))))")
	var out bytes.Buffer
	status, err := run(config.NewConfig(), options{fingerprint: true}, []string{path}, &out)
	be.Err(t, err, nil)
	be.Equal(t, status, 0)

	lines := strings.Split(out.String(), "\n")
	be.True(t, strings.HasPrefix(lines[1], "(body p ; checked "))
	be.Equal(t, lines[2], "  (:= x 4)")
}

func TestRunExitStatus(t *testing.T) {
	semanticErr := writeSource(t, "bad.sx", "(program p (var x integer) (body (:= x 1.5)))")
	var out bytes.Buffer
	status, err := run(config.NewConfig(), options{}, []string{semanticErr}, &out)
	be.Err(t, err, nil)
	be.Equal(t, status, exitErrors)
	// the tree is still printed
	be.True(t, strings.Contains(out.String(), "(:= x 1.5)"))

	syntaxErr := writeSource(t, "syntax.sx", "(program p (body (:= y 1)))")
	out.Reset()
	status, err = run(config.NewConfig(), options{}, []string{syntaxErr}, &out)
	be.Err(t, err, nil)
	be.Equal(t, status, exitErrors)
	be.Equal(t, out.Len(), 0)

	_, err = run(config.NewConfig(), options{}, []string{filepath.Join(t.TempDir(), "missing.sx")}, &out)
	be.True(t, err != nil)
}

func TestRunSamplePrograms(t *testing.T) {
	tests := []struct {
		file   string
		status int
		lines  []string
	}{
		{"arith.sx", 0, []string{"  (:= i 26)", "  (:= (aref v 0) (+ r (cast i)))", "  (:= r (* SCALE (cast (- N 2))))"}},
		{"routines.sx", 0, []string{"(body fact", "  (call add (call fact 5) (cast 2))", "  (:= total (cast 0))"}},
		{"errors.sx", exitErrors, []string{"  (:= i (div 7 0))", "  (:= r +Inf)"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			var out bytes.Buffer
			status, err := run(config.NewConfig(), options{}, []string{filepath.Join("..", "..", "tests", tt.file)}, &out)
			be.Err(t, err, nil)
			be.Equal(t, status, tt.status)
			got := strings.Split(out.String(), "\n")
			for _, want := range tt.lines {
				found := false
				for _, line := range got {
					found = found || line == want
				}
				if !found {
					t.Errorf("output has no line %q:\n%s", want, out.String())
				}
			}
		})
	}
}
