package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/goforj/godump"
	"github.com/pkg/errors"
	"github.com/xplshn/pasem/pkg/ast"
	"github.com/xplshn/pasem/pkg/cli"
	"github.com/xplshn/pasem/pkg/config"
	"github.com/xplshn/pasem/pkg/diag"
	"github.com/xplshn/pasem/pkg/parser"
	"github.com/xplshn/pasem/pkg/semantic"
	"github.com/xplshn/pasem/pkg/symtab"
	"github.com/xplshn/pasem/pkg/token"
)

const (
	exitErrors   = 1
	exitInternal = 2
)

type options struct {
	outFile     string
	target      string
	types       bool
	fingerprint bool
	dumpGo      bool
	verbose     bool
	wall        bool
	wnoAll      bool
}

func main() {
	app := cli.NewApp("pasem")
	app.Synopsis = "[options] <input.sx> ..."
	app.Description = "Type checks and constant folds tree descriptions of Pascal-like programs, printing the annotated trees."
	app.Repository = "<https://github.com/xplshn/pasem>"

	var opts options
	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "", "Write the folded trees to <file> instead of stdout.", "file")
	fs.String(&opts.target, "target", "t", "", "QBE target whose word size bounds folded integers.", "target")
	fs.Bool(&opts.types, "types", "T", false, "Annotate every printed expression with its type.")
	fs.Bool(&opts.fingerprint, "fingerprint", "", false, "Print the fingerprint of every body before and after folding.")
	fs.Bool(&opts.dumpGo, "dump-go", "", false, "Dump the analysed program as Go values.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Report progress on stderr.")
	fs.Bool(&opts.wall, "Wall", "", false, "Enable all warnings except debug-fold.")
	fs.Bool(&opts.wnoAll, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	entries := cfg.SetupFlagGroups(fs)

	status := 0
	app.Action = func(inputFiles []string) error {
		cfg.Verbose = opts.verbose
		envTarget := cfg.ApplyEnv()
		switch {
		case opts.wall:
			cfg.ProcessFlagString("-Wall")
		case opts.wnoAll:
			cfg.ProcessFlagString("-Wno-all")
		}
		cfg.ApplyFlagEntries(fs, entries)
		if opts.target == "" {
			opts.target = envTarget
		}
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, opts.target)

		if len(inputFiles) == 0 {
			return fail(errors.New("no input files specified"))
		}

		out := io.Writer(os.Stdout)
		if opts.outFile != "" {
			f, err := os.Create(opts.outFile)
			if err != nil {
				return fail(errors.Wrap(err, "creating output file"))
			}
			defer f.Close()
			out = f
		}

		var err error
		status, err = run(cfg, opts, inputFiles, out)
		return fail(err)
	}

	// flag errors are printed by the cli package, the rest by fail
	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(exitErrors)
	}
	os.Exit(status)
}

func fail(err error) error {
	if err != nil {
		fmt.Fprintf(os.Stderr, "pasem: error: %v\n", err)
	}
	return err
}

// run analyses every input file as its own compilation unit and returns
// the exit status.
func run(cfg *config.Config, opts options, inputFiles []string, out io.Writer) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*diag.InternalError)
			if !ok {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "pasem: %v\n", ie)
			status, err = exitInternal, nil
		}
	}()

	records := make([]diag.SourceFileRecord, len(inputFiles))
	for i, path := range inputFiles {
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return exitErrors, errors.Wrapf(rerr, "reading %s", path)
		}
		records[i] = diag.SourceFileRecord{Name: path, Content: []rune(string(content))}
	}

	sink := diag.NewSink(cfg, os.Stderr)
	sink.SetSourceFiles(records)

	for i, rec := range records {
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "pasem: info: analysing %s\n", rec.Name)
		}
		tab := symtab.New()
		prog, perr := parser.ParseSource(rec.Content, i, tab)
		if perr != nil {
			reportParseError(sink, perr)
			continue
		}

		res := semantic.New(cfg, tab, sink).Run(prog)
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "pasem: info: %s: %d bodies, %d errors, %d warnings so far\n", rec.Name, len(res.Bodies), res.Errors, res.Warnings)
		}
		writeProgram(out, prog, res, tab, opts)
		if opts.dumpGo {
			godump.Dump(prog)
		}
	}

	if sink.ErrorCount() > 0 {
		return exitErrors, nil
	}
	return 0, nil
}

func reportParseError(sink *diag.Sink, err error) {
	var tok token.Token
	msg := err.Error()
	if se, ok := errors.Cause(err).(*parser.SyntaxError); ok {
		tok = se.Tok
		// keep the wrapping context, drop the position the sink prints itself
		msg = strings.TrimSuffix(msg, se.Error()) + se.Msg
	}
	sink.Error(tok, "%s", msg)
}

func writeProgram(out io.Writer, prog *ast.Program, res semantic.Result, tab *symtab.Table, opts options) {
	printer := ast.Printer{}
	if opts.types {
		printer.Types = tab
	}
	fmt.Fprintf(out, "; program %s\n", prog.Name)
	for i, body := range prog.Bodies {
		br := res.Bodies[i]
		fmt.Fprintf(out, "(body %s", br.Name)
		if opts.fingerprint {
			fmt.Fprintf(out, " ; checked %016x folded %016x", br.Checked, br.Folded)
		}
		fmt.Fprintln(out)
		if body.Stmts != nil {
			for _, line := range strings.Split(printer.Format(body.Stmts), "\n") {
				fmt.Fprintf(out, "  %s\n", line)
			}
		}
		fmt.Fprintln(out, ")")
	}
}
