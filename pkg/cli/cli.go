// Package cli is a small GNU-style flag parser with grouped on/off switches
// (-Wname/-Wno-name) and a help page sized to the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

const indentUnit = "    "

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

// Set accepts an empty string as true so "--flag" works without a value.
func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return errors.Errorf("invalid boolean value '%s'", s)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return errors.Errorf("invalid integer value '%s'", s)
	}
	*v.p = val
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }

type durationValue struct{ p *time.Duration }

func (v *durationValue) Set(s string) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return errors.Errorf("invalid duration '%s'", s)
	}
	*v.p = val
	return nil
}
func (v *durationValue) String() string { return v.p.String() }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
	// Changed is set once the flag was given on the command line
	Changed bool
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroupEntry is one switch of a group: Prefix+Name turns it on,
// Prefix+"no-"+Name turns it off.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name        string
	Description string
	GroupType   string
	Header      string
	Flags       []FlagGroupEntry
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{name: name, flags: make(map[string]*Flag), shorthands: make(map[string]*Flag)}
}

// Args returns the operands left after Parse
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), "n")
}

func (f *FlagSet) Duration(p *time.Duration, name, shorthand string, value time.Duration, usage string) {
	*p = value
	f.Var(&durationValue{p}, name, shorthand, usage, value.String(), "duration")
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup registers both switches of every entry as boolean flags
// reachable with a single dash.
func (f *FlagSet) AddFlagGroup(name, description, groupType, header string, entries []FlagGroupEntry) {
	for _, entry := range entries {
		if entry.Enabled != nil {
			f.Bool(entry.Enabled, entry.Prefix+entry.Name, "", *entry.Enabled, entry.Usage)
		}
		if entry.Disabled != nil {
			f.Bool(entry.Disabled, entry.Prefix+"no-"+entry.Name, "", *entry.Disabled, "Disable '"+entry.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Description: description, GroupType: groupType, Header: header, Flags: entries})
}

// Parse accepts --name[=value], -name[=value] for any long flag, -x value
// and -xvalue for shorthands, and "--" to end flag processing.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		}

		dashes := "-"
		body := arg[1:]
		if strings.HasPrefix(arg, "--") {
			dashes, body = "--", arg[2:]
		}
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok && dashes == "-" {
			if err := f.parseShorthand(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}
		if !ok {
			return errors.Errorf("unknown flag: %s%s", dashes, name)
		}
		if !hasValue && !flag.isBool() {
			if i+1 >= len(arguments) {
				return errors.Errorf("flag needs an argument: %s%s", dashes, name)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return errors.Wrapf(err, "%s%s", dashes, name)
		}
		flag.Changed = true
	}
	return nil
}

func (f *FlagSet) parseShorthand(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return errors.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	value := arg[2:]
	if flag.isBool() {
		value = ""
	} else if value == "" {
		if *i+1 >= len(arguments) {
			return errors.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	if err := flag.Value.Set(value); err != nil {
		return err
	}
	flag.Changed = true
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run parses arguments and calls Action with the remaining operands. A
// parse error prints a short usage page to Stderr and is returned.
func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprint(a.Stderr, a.Usage())
		return err
	}
	if help {
		fmt.Fprint(a.Stdout, a.Help(terminalWidth(a.Stdout)))
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) Usage() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(&sb, "Run '%s --help' for all available options and flags.\n", a.Name)
	return sb.String()
}

// Help renders the full help page wrapped to width columns.
func (a *App) Help(width int) string {
	var sb strings.Builder
	options := a.optionFlags()

	leftWidth := 0
	widen := func(s string) {
		if len(s) > leftWidth {
			leftWidth = len(s)
		}
	}
	for _, flag := range options {
		widen(flag.display())
	}
	for _, group := range a.FlagSet.groups {
		for _, entry := range group.Flags {
			widen(entry.Name)
		}
		if len(group.Flags) > 0 {
			widen(fmt.Sprintf("-%sno-<%s>", group.Flags[0].Prefix, group.GroupType))
		}
	}

	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indentUnit)
		for _, line := range wrapText(a.Description, width-2*len(indentUnit)) {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit+indentUnit, line)
		}
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit+indentUnit, a.Repository)
	}

	if len(options) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentUnit)
		for _, flag := range options {
			right := ""
			if !flag.isBool() && flag.DefValue != "" {
				right = "|" + flag.DefValue + "|"
			}
			writeEntry(&sb, width, leftWidth, flag.display(), flag.Usage, right)
		}
	}

	for _, group := range a.FlagSet.groups {
		if len(group.Flags) == 0 {
			continue
		}
		prefix := group.Flags[0].Prefix
		fmt.Fprintf(&sb, "\n%s%s\n", indentUnit, group.Name)
		writeEntry(&sb, width, leftWidth, fmt.Sprintf("-%s<%s>", prefix, group.GroupType), "Enable a specific "+group.GroupType, "")
		writeEntry(&sb, width, leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType), "Disable a specific "+group.GroupType, "")
		if group.Header != "" {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit, group.Header)
		}
		entries := append([]FlagGroupEntry(nil), group.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, entry := range entries {
			mark := "|-|"
			if entry.Enabled != nil && *entry.Enabled && (entry.Disabled == nil || !*entry.Disabled) {
				mark = "|x|"
			}
			writeEntry(&sb, width, leftWidth, entry.Name, entry.Usage, mark)
		}
	}
	return sb.String()
}

// optionFlags lists the flags that are not part of a group, by name
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, group := range a.FlagSet.groups {
		for _, entry := range group.Flags {
			grouped[entry.Prefix+entry.Name] = true
			grouped[entry.Prefix+"no-"+entry.Name] = true
		}
	}
	var flags []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			flags = append(flags, flag)
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func (f *Flag) display() string {
	var sb strings.Builder
	if f.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", f.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", f.Name)
	if !f.isBool() && f.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", f.ExpectedType)
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, width, leftWidth int, left, usage, right string) {
	prefix := indentUnit + indentUnit
	usageWidth := width - len(prefix) - leftWidth - 1 - len(right) - 2
	if usageWidth < 10 {
		usageWidth = 10
	}
	lines := wrapText(usage, usageWidth)
	if len(lines) == 0 {
		lines = []string{""}
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", prefix, leftWidth, left, usageWidth, lines[0], right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", prefix, leftWidth, left, lines[0])
	}
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s %s\n", prefix, strings.Repeat(" ", leftWidth), line)
	}
}

// terminalWidth is the width of w when it is a terminal, else 80
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	if width < 20 {
		return 20
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+1+len(word) > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
