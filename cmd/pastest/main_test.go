package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestGoldenPath(t *testing.T) {
	be.Equal(t, goldenPath(options{}, "tests/arith.sx"), filepath.Join("tests", ".arith.sx.json"))
	be.Equal(t, goldenPath(options{jsonDir: "out"}, "tests/arith.sx"), filepath.Join("out", ".arith.sx.json"))
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.sx"), filepath.Join(dir, "b.sx")
	be.Err(t, os.WriteFile(a, []byte("(program p (body))"), 0o644), nil)
	be.Err(t, os.WriteFile(b, []byte("(program p (body))"), 0o644), nil)

	ha, err := hashFile(a)
	be.Err(t, err, nil)
	hb, _ := hashFile(b)
	be.Equal(t, ha, hb)
	be.Equal(t, len(ha), 16)

	_, err = hashFile(filepath.Join(dir, "missing.sx"))
	be.True(t, err != nil)
}

func TestCompareResults(t *testing.T) {
	golden := &Golden{Result: Execution{Stdout: "; program p\n", ExitCode: 0}}

	res := compareResults("p.sx", golden, &Execution{Stdout: "; program p\n"})
	be.Equal(t, res.Status, "PASS")

	res = compareResults("p.sx", golden, &Execution{Stdout: "; program q\n", ExitCode: 1})
	be.Equal(t, res.Status, "FAIL")
	be.True(t, strings.Contains(res.Diff, "Exit code mismatch"))
	be.True(t, strings.Contains(res.Diff, "STDOUT mismatch"))
	be.Equal(t, strings.Contains(res.Diff, "STDERR mismatch"), false)
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.sx", "b.sx", "c.txt"} {
		be.Err(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644), nil)
	}
	be.Err(t, os.Mkdir(filepath.Join(dir, "d.sx"), 0o755), nil)

	pattern := filepath.Join(dir, "*.sx")
	files, err := expandGlobPatterns(pattern + " " + pattern)
	be.Err(t, err, nil)
	be.Equal(t, len(files), 2)
	be.Equal(t, filepath.Base(files[0]), "a.sx")
	be.Equal(t, filepath.Base(files[1]), "b.sx")
}
