package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/config"
	"github.com/sandrolain/luppolo/pkg/parser"
	"github.com/sandrolain/luppolo/pkg/types"
)

const (
	promptMain = "lpp> "
	replEntry  = "Main"
)

const replHelp = `Enter a function definition to keep it, or an expression to evaluate it
against the kept definitions. Main is reserved for the evaluated line.

REPL commands:
  :defs    List the kept definitions
  :reset   Forget every definition
  :help    Show this text
  :quit    Exit the REPL
`

// definition is one input line that defined functions.
type definition struct {
	names  []string
	source string
}

// session holds the state of a REPL.
type session struct {
	engine *luppolo.Engine
	defs   []definition
}

// eval handles one line and returns the text to show.
func (s *session) eval(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	if strings.HasPrefix(line, ":") {
		switch strings.ToLower(line) {
		case ":defs":
			return s.listing(), nil
		case ":reset":
			s.defs = nil
			return "definitions cleared", nil
		case ":help":
			return strings.TrimRight(replHelp, "\n"), nil
		default:
			return "", fmt.Errorf("unknown command %s, type :help", line)
		}
	}

	if root, err := parser.Parse(line); err == nil && len(root.Children) > 0 {
		return s.define(root, line)
	}

	var src strings.Builder
	for _, d := range s.defs {
		src.WriteString(d.source)
		src.WriteByte('\n')
	}
	fmt.Fprintf(&src, "%s() { return %s }", replEntry, line)

	result, err := s.engine.Exec(ctx, src.String())
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

func (s *session) define(root *types.Node, line string) (string, error) {
	names := make([]string, 0, len(root.Children))
	for _, fn := range root.Children {
		sig, _ := fn.Value.(types.Signature)
		if sig.Name == replEntry {
			return "", fmt.Errorf("%s is reserved in the REPL", replEntry)
		}
		names = append(names, sig.Name)
	}

	s.defs = slices.DeleteFunc(s.defs, func(d definition) bool {
		return slices.ContainsFunc(d.names, func(n string) bool { return slices.Contains(names, n) })
	})
	s.defs = append(s.defs, definition{names: names, source: line})
	return "defined " + strings.Join(names, ", "), nil
}

func (s *session) listing() string {
	if len(s.defs) == 0 {
		return "no definitions"
	}
	lines := make([]string, len(s.defs))
	for i, d := range s.defs {
		lines[i] = d.source
	}
	return strings.Join(lines, "\n")
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(cfg config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs, cfg)
	fs.BoolVar(&c.trace, "t", cfg.Trace, "trace the interpreter during execution")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	c.entry = replEntry

	logger := c.logger(cfg, stderr)
	if f, ok := stdin.(*os.File); ok && isTerminal(f) && stdout == os.Stdout {
		s := &session{engine: c.engine(cfg, logger, stdin, stdout)}
		return interactive(s, cfg.History, stdout, stderr)
	}

	// Input and the session read the same stream.
	in := bufio.NewReader(stdin)
	s := &session{engine: c.engine(cfg, logger, in, stdout)}
	return batch(s, in, stdout, stderr)
}

// interactive runs the REPL with line editing and history.
func interactive(s *session, history string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "Luppolo %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for help.\n", luppolo.Version())

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(history); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(stdout)
			return 0
		}
		if strings.TrimSpace(line) == ":quit" {
			return 0
		}
		ln.AppendHistory(line)

		out, err := s.eval(context.Background(), line)
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Fprintln(stdout, out)
		}
	}
}

// batch reads lines without prompts, for piped input. Input calls in a
// line consume the lines that follow it. The exit code is 1 when any line
// failed.
func batch(s *session, in *bufio.Reader, stdout, stderr io.Writer) int {
	code := 0
	for {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fail(stderr, err)
		}
		if line == "" && err != nil {
			return code
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == ":quit" {
			return code
		}

		out, evalErr := s.eval(context.Background(), line)
		switch {
		case evalErr != nil:
			fmt.Fprintf(stderr, "ERROR: %v\n", evalErr)
			code = 1
		case out != "":
			fmt.Fprintln(stdout, out)
		}
		if err != nil {
			return code
		}
	}
}
