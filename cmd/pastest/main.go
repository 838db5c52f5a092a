// pastest runs pasem over a set of tree descriptions and compares its
// output and exit status against golden files recorded earlier.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/xplshn/pasem/pkg/cli"
)

// Execution is one recorded run of the compiler under test
type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is what a golden file holds: the run and the hash of the source
// it was recorded from.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Args       []string  `json:"args,omitempty"`
	Result     Execution `json:"result"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Golden  *Golden    `json:"golden,omitempty"`
	Target  *Execution `json:"target,omitempty"`
}

type options struct {
	targetCompiler string
	targetArgs     string
	generateGolden bool
	testFiles      string
	skipFiles      string
	outputJSON     string
	jsonDir        string
	timeout        time.Duration
	jobs           int
	verbose        bool
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"

	// sourcePlaceholder replaces the input path in recorded output so
	// golden files do not depend on where the suite is run from
	sourcePlaceholder = "__SOURCE__"
)

func main() {
	app := cli.NewApp("pastest")
	app.Synopsis = "[options] [file.sx ...]"
	app.Description = "Golden-output test runner for pasem. Without file arguments the --test-files patterns are used."

	var opts options
	fs := app.FlagSet
	fs.String(&opts.targetCompiler, "target-compiler", "c", "./pasem", "Path to the pasem binary under test.", "path")
	fs.String(&opts.targetArgs, "target-args", "a", "-T", "Arguments passed before the input file (space-separated).", "args")
	fs.Bool(&opts.generateGolden, "generate-golden", "g", false, "Record golden files instead of comparing against them.")
	fs.String(&opts.testFiles, "test-files", "f", "tests/*.sx", "Glob pattern(s) for files to test (space-separated).", "glob")
	fs.String(&opts.skipFiles, "skip-files", "", "", "Files to skip (space-separated).", "files")
	fs.String(&opts.outputJSON, "output", "o", ".test_results.json", "Output file for the JSON test report.", "file")
	fs.String(&opts.jsonDir, "dir", "", "", "Directory for golden files (defaults to each source file's directory).", "dir")
	fs.Duration(&opts.timeout, "timeout", "", 5*time.Second, "Timeout for each compiler run.")
	fs.Int(&opts.jobs, "jobs", "j", 4, "Number of parallel test jobs.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Enable verbose logging.")

	failed := false
	app.Action = func(args []string) error {
		log.SetFlags(0)
		if opts.jobs < 1 {
			opts.jobs = 1
		}
		files := args
		if len(files) == 0 {
			var err error
			if files, err = expandGlobPatterns(opts.testFiles); err != nil {
				return err
			}
		}
		if len(files) == 0 {
			log.Println("No test files found matching the pattern(s).")
			return nil
		}

		if opts.generateGolden {
			for _, file := range files {
				if err := generateGolden(opts, file); err != nil {
					log.Printf("%s[ERROR]%s %v\n", cRed, cNone, err)
					failed = true
				}
			}
			return nil
		}

		results := runSuite(opts, files)
		printSummary(opts, results)
		writeJSONReport(opts, results)
		for _, r := range results {
			if r.Status == "FAIL" || r.Status == "ERROR" {
				failed = true
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil || failed {
		os.Exit(1)
	}
}

func goldenPath(opts options, sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if opts.jsonDir != "" {
		return filepath.Join(opts.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func generateGolden(opts options, sourceFile string) error {
	hash, err := hashFile(sourceFile)
	if err != nil {
		return errors.Wrapf(err, "hashing %s", sourceFile)
	}
	args := strings.Fields(opts.targetArgs)
	golden := Golden{SourceHash: hash, Args: args, Result: runCompiler(opts, args, sourceFile)}
	if golden.Result.TimedOut {
		return errors.Errorf("%s: compiler timed out after %s", sourceFile, opts.timeout)
	}

	data, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding golden file")
	}
	path := goldenPath(opts, sourceFile)
	if opts.jsonDir != "" {
		if err := os.MkdirAll(opts.jsonDir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", opts.jsonDir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func runSuite(opts options, files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(opts.skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < opts.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(opts, file)
			}
		}()
	}

	// identical inputs are tested once
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		hash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if original, seen := seenHashes[hash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[hash] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []*FileTestResult
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results
}

func testFile(opts options, file string) *FileTestResult {
	data, err := os.ReadFile(goldenPath(opts, file))
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; record one with --generate-golden"}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
	}
	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	if hash != golden.SourceHash {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Source changed since the golden file was recorded", Golden: &golden}
	}

	target := runCompiler(opts, golden.Args, file)
	return compareResults(file, &golden, &target)
}

func compareResults(file string, golden *Golden, target *Execution) *FileTestResult {
	var diffs strings.Builder
	want := golden.Result
	if target.TimedOut {
		fmt.Fprintf(&diffs, "Compiler timed out\n")
	}
	if want.ExitCode != target.ExitCode {
		fmt.Fprintf(&diffs, "Exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.ExitCode, target.ExitCode)
	}
	if d := cmp.Diff(want.Stdout, target.Stdout); d != "" {
		fmt.Fprintf(&diffs, "STDOUT mismatch (-golden +target):\n%s", d)
	}
	if d := cmp.Diff(want.Stderr, target.Stderr); d != "" {
		fmt.Fprintf(&diffs, "STDERR mismatch (-golden +target):\n%s", d)
	}
	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file", Golden: golden, Target: target}
}

// runCompiler runs the compiler under test on sourceFile with colour
// disabled and the source path masked in its output.
func runCompiler(opts options, args []string, sourceFile string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, opts.targetCompiler, append(append([]string{}, args...), sourceFile)...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	res := Execution{
		Stdout:   strings.ReplaceAll(stdout.String(), sourceFile, sourcePlaceholder),
		Stderr:   strings.ReplaceAll(stderr.String(), sourceFile, sourcePlaceholder),
		Duration: time.Since(start),
	}
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut, res.ExitCode = true, -1
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -2
			res.Stderr += "\nExecution error: " + err.Error()
		}
	}
	if opts.verbose {
		log.Printf("[%s] exit %d in %s", sourceFile, res.ExitCode, res.Duration)
	}
	return res
}

func printSummary(opts options, results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			if r.Diff != "" {
				fmt.Println(indent(r.Diff))
			}
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
		if r.Target != nil {
			total += r.Target.Duration
			if opts.verbose {
				fmt.Printf("  %s: %s\n", filepath.Base(opts.targetCompiler), r.Target.Duration)
			}
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total (%s)\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results), total)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func writeJSONReport(opts options, results []*FileTestResult) {
	report := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	path := opts.outputJSON
	if opts.jsonDir != "" {
		path = filepath.Join(opts.jsonDir, opts.outputJSON)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, path, err)
		return
	}
	fmt.Printf("Full test report saved to %s\n", path)
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %s", pattern)
		}
		for _, file := range matches {
			if seen[file] {
				continue
			}
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
				files = append(files, file)
				seen[file] = true
			}
		}
	}
	return files, nil
}
