// Command luppolo compiles and runs Luppolo programs.
//
// Usage:
//
//	luppolo run [-O] [-a] [-t] [-entry Main] FILE [ARGS...]
//	luppolo compile [-O] [-a] [-o OUT] [-format json|yaml] FILE.lpp
//	luppolo repl
//	luppolo version
//
// FILE is either source code (.lpp) or a compiled program (.json, .yaml,
// .yml). Program arguments are natural numbers or single lower-case
// letters. Defaults for the flags come from LUPPOLO_* environment
// variables.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/config"
)

const appName = "luppolo"

func main() {
	os.Exit(cli(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli runs one command and returns the process exit code.
func cli(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	switch cmd := args[0]; cmd {
	case "run":
		return cmdRun(cfg, args[1:], stdin, stdout, stderr)
	case "compile":
		return cmdCompile(cfg, args[1:], stdout, stderr)
	case "repl":
		return cmdRepl(cfg, args[1:], stdin, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, luppolo.Version())
		return 0
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "%s: unknown command %q\n", appName, cmd)
		usage(stderr)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %[1]s <command> [flags] [arguments]

Commands:
  run      Run a source file (.lpp) or a compiled program (.json, .yaml)
  compile  Compile a source file to IR
  repl     Start an interactive session
  version  Print the version

Run '%[1]s <command> -h' for the flags of a command.
`, appName)
}

// common holds the flags shared by run, compile and repl.
type common struct {
	optimize bool
	ast      bool
	trace    bool
	verbose  bool
	entry    string
}

func (c *common) register(fs *flag.FlagSet, cfg config.Config) {
	fs.BoolVar(&c.optimize, "O", cfg.Optimize, "optimize the AST before threading")
	fs.BoolVar(&c.ast, "a", false, "print the AST of the source code")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logging")
	fs.StringVar(&c.entry, "entry", cfg.Entry, "entry function")
}

// logger builds the command logger. Tracing and -v lower the level to debug.
func (c *common) logger(cfg config.Config, stderr io.Writer) *slog.Logger {
	cfg.Trace = c.trace
	if c.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg.Logger(stderr)
}

func (c *common) engine(cfg config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) *luppolo.Engine {
	return luppolo.New(
		luppolo.WithOptimize(c.optimize),
		luppolo.WithEntry(c.entry),
		luppolo.WithTrace(c.trace),
		luppolo.WithMaxDepth(cfg.MaxDepth),
		luppolo.WithCaching(true),
		luppolo.WithCacheSize(cfg.CacheSize),
		luppolo.WithLogger(logger),
		luppolo.WithStdin(stdin),
		luppolo.WithStdout(stdout),
	)
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments and returns the positional ones. Everything after a
// "--" terminator is positional.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "ERROR: %v\n", err)
	return 1
}
