package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/quizgen/errors"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
	// bare commands run without loading config or creating providers.
	bare bool
}

var commands = []command{
	{name: "generate", summary: "generate questions through the fallback chain", run: runGenerate},
	{name: "providers", summary: "list registered providers", run: runProviders},
	{name: "complete", summary: "send one prompt to a provider", run: runComplete},
	{name: "probe", summary: "check that a provider answers", run: runProbe},
	{name: "version", summary: "print build information", run: runVersion, bare: true},
}

// usageError marks errors that should print usage and exit with exitUsage.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("quizgen", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	var g globals
	global.StringVar(&g.configFile, "config", "", "config file (default: search cmd/quizgen/config.yml, ./config.yml)")
	global.StringVar(&g.envFile, "env-file", "", ".env file with credentials")
	global.StringVar(&g.logLevel, "log-level", "", "override logging.level")
	global.StringVar(&g.errorFormat, "error-format", "text", "how command failures are printed: text or json")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if g.errorFormat != "text" && g.errorFormat != "json" {
		fmt.Fprintf(stderr, "quizgen: --error-format must be text or json, got %q\n", g.errorFormat)
		return exitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return exitUsage
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "quizgen: unknown command %q\n\n", rest[0])
		printUsage(stderr, global)
		return exitUsage
	}

	e := &env{globals: g, out: stdout, errOut: stderr}
	var err error
	if cmd.bare {
		err = cmd.run(ctx, e, rest[1:])
	} else {
		err = e.runTask(ctx, func(ctx context.Context) error {
			return cmd.run(ctx, e, rest[1:])
		})
	}

	var ue *usageError
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, pflag.ErrHelp):
		return exitOK
	case stderrors.As(err, &ue):
		fmt.Fprintf(stderr, "quizgen %s: %s\n", cmd.name, ue.msg)
		return exitUsage
	case g.errorFormat == "json":
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(errors.ReportOf(err))
		return exitError
	default:
		fmt.Fprintf(stderr, "quizgen %s: %v\n", cmd.name, err)
		return exitError
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	var b strings.Builder
	b.WriteString("Usage: quizgen [global flags] <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-10s %s\n", c.name, c.summary)
	}
	b.WriteString("\nGlobal flags:\n")
	fmt.Fprint(w, b.String())
	global.PrintDefaults()
}

// newFlagSet returns a subcommand flag set that reports errors instead of
// exiting.
func newFlagSet(e *env, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("quizgen "+name, pflag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}
