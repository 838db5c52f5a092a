package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/pasem/pkg/cli"
	"github.com/xyproto/env/v2"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatFoldCasts
	FeatStrictCalls
	FeatWrapWord
	FeatCount
)

type Warning int

const (
	WarnCallArgs Warning = iota
	WarnRealDivZero
	WarnDebugFold
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	QbeTarget  string
	WordSize   int
	NoColor    bool
	Verbose    bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		WordSize:   8,
	}

	features := map[Feature]Info{
		FeatFold:        {"fold", true, "Fold constant subexpressions after type checking."},
		FeatFoldCasts:   {"fold-casts", false, "Fold integer-to-real casts whose operand is constant."},
		FeatStrictCalls: {"strict-calls", true, "Report argument count and type mismatches at call sites as errors."},
		FeatWrapWord:    {"wrap-word", true, "Wrap folded integer results to the target word size."},
	}

	warnings := map[Warning]Info{
		WarnCallArgs:    {"call-args", false, "Warn about call argument mismatches when strict-calls is disabled."},
		WarnRealDivZero: {"real-div-zero", true, "Warn when a real division by a constant zero is folded."},
		WarnDebugFold:   {"debug-fold", false, "Report every subexpression the folder replaces."},
		WarnExtra:       {"extra", true, "Warn about exact equality tests on real values."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget records the QBE target the folded tree is destined for; its
// word size bounds folded integer arithmetic.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		if c.Verbose {
			fmt.Fprintf(os.Stderr, "pasem: info: no target specified, defaulting to host target '%s'\n", c.QbeTarget)
		}
	} else {
		c.QbeTarget = qbeTarget
		if c.Verbose {
			fmt.Fprintf(os.Stderr, "pasem: info: using specified target '%s'\n", c.QbeTarget)
		}
	}

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize = 8
	case "arm", "rv32":
		c.WordSize = 4
	default:
		fmt.Fprintf(os.Stderr, "pasem: warning: unrecognized target '%s', defaulting to 64-bit words\n", c.QbeTarget)
		c.WordSize = 8
	}
}

// ApplyEnv reads PASEM_FLAGS and NO_COLOR and returns the target named by
// PASEM_TARGET (empty when unset).
func (c *Config) ApplyEnv() string {
	if flags := env.Str("PASEM_FLAGS"); flags != "" {
		c.ProcessFlagString(flags)
	}
	if env.Str("NO_COLOR") != "" {
		c.NoColor = true
	}
	return env.Str("PASEM_TARGET")
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			// -Wall leaves the compiler-debug output alone
			if i != WarnDebugFold {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlagString applies a whitespace separated list of -W/-F flags;
// -Wall and -Wno-all are applied before the others.
func (c *Config) ProcessFlagString(flagStr string) {
	flags := strings.Fields(flagStr)
	for _, flag := range flags {
		if flag == "-Wall" || flag == "-Wno-all" {
			c.applyFlag(flag)
		}
	}
	for _, flag := range flags {
		if flag != "-Wall" && flag != "-Wno-all" {
			c.applyFlag(flag)
		}
	}
}

// FlagEntries mirror the warning and feature tables as -W/-F flag pairs.
// Indexes match the Warning and Feature enums.
type FlagEntries struct {
	Warnings []cli.FlagGroupEntry
	Features []cli.FlagGroupEntry
}

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name>
// on fs.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) FlagEntries {
	var entries FlagEntries
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		entries.Warnings = append(entries.Warnings, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
		})
	}
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		entries.Features = append(entries.Features, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
		})
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", entries.Warnings)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", entries.Features)
	return entries
}

// ApplyFlagEntries copies the -W/-F group switches given on the command
// line back into the config. Switches the user did not give leave the
// config untouched, so settings from PASEM_FLAGS survive; a switch that was
// given wins even when it repeats the default.
func (c *Config) ApplyFlagEntries(fs *cli.FlagSet, entries FlagEntries) {
	for i, entry := range entries.Warnings {
		if enabled, ok := entryValue(fs, entry); ok {
			c.SetWarning(Warning(i), enabled)
		}
	}
	for i, entry := range entries.Features {
		if enabled, ok := entryValue(fs, entry); ok {
			c.SetFeature(Feature(i), enabled)
		}
	}
}

// entryValue reports the state the command line asks for, if any. The
// -Xno-name form wins over -Xname.
func entryValue(fs *cli.FlagSet, entry cli.FlagGroupEntry) (enabled, given bool) {
	if off := fs.Lookup(entry.Prefix + "no-" + entry.Name); off != nil && off.Changed && entry.Disabled != nil && *entry.Disabled {
		return false, true
	}
	if on := fs.Lookup(entry.Prefix + entry.Name); on != nil && on.Changed && entry.Enabled != nil {
		return *entry.Enabled, true
	}
	return false, false
}
