package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/config"
	"github.com/sandrolain/luppolo/pkg/interpreter"
	"github.com/sandrolain/luppolo/pkg/types"
)

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(cfg config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs, cfg)
	fs.BoolVar(&c.trace, "t", cfg.Trace, "trace the interpreter during execution")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s run [flags] FILE [ARGS...]\n", appName)
		fs.PrintDefaults()
	}
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return 1
	}
	if len(positional) == 0 {
		fs.Usage()
		return 1
	}

	file := positional[0]
	progArgs, err := interpreter.ParseArguments(positional[1:])
	if err != nil {
		return fail(stderr, err)
	}

	logger := c.logger(cfg, stderr)
	engine := c.engine(cfg, logger, stdin, stdout)
	prog, err := load(engine, &c, file, stdout)
	if err != nil {
		return fail(stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := engine.Run(ctx, prog, progArgs...)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, result)
	return 0
}

// load reads a source file or a persisted program.
func load(engine *luppolo.Engine, c *common, file string, stdout io.Writer) (types.Program, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".lpp":
		return compileSource(engine, c, string(data), stdout)
	case ".json":
		prog, err := types.ParseProgramJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file, err)
		}
		return prog, nil
	case ".yaml", ".yml":
		prog, err := types.ParseProgramYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file, err)
		}
		return prog, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", file)
	}
}

// compileSource parses and threads source, printing the AST when asked.
func compileSource(engine *luppolo.Engine, c *common, source string, stdout io.Writer) (types.Program, error) {
	root, err := engine.Parse(source)
	if err != nil {
		return nil, err
	}
	if c.ast {
		fmt.Fprintln(stdout, "AST:")
		fmt.Fprintln(stdout, root.Tree())
	}
	return engine.Thread(root)
}

// -----------------------------------------------------------------------------
// compile
// -----------------------------------------------------------------------------

func cmdCompile(cfg config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs, cfg)
	output := fs.String("o", "", "output file for the compiled IR (default: FILE.json)")
	format := fs.String("format", "", "IR format: json or yaml (default: from the output extension)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s compile [flags] FILE.lpp\n", appName)
		fs.PrintDefaults()
	}
	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return 1
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}

	file := positional[0]
	if !strings.EqualFold(filepath.Ext(file), ".lpp") {
		return fail(stderr, fmt.Errorf("unsupported file type: %s", file))
	}
	source, err := os.ReadFile(file)
	if err != nil {
		return fail(stderr, err)
	}

	out, enc, err := target(file, *output, *format)
	if err != nil {
		return fail(stderr, err)
	}

	engine := c.engine(cfg, c.logger(cfg, stderr), nil, stdout)
	prog, err := compileSource(engine, &c, string(source), stdout)
	if err != nil {
		return fail(stderr, err)
	}
	data, err := enc(prog)
	if err != nil {
		return fail(stderr, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintf(stdout, "Compiled successfully. IR saved to %s.\n", out)
	return 0
}

type encoder func(types.Program) ([]byte, error)

func encodeJSON(prog types.Program) ([]byte, error) {
	data, err := json.MarshalIndent(prog, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func encodeYAML(prog types.Program) ([]byte, error) {
	return yaml.Marshal(prog)
}

// target resolves the output path and encoder of a compilation.
func target(file, output, format string) (string, encoder, error) {
	if format == "" {
		format = "json"
		if ext := strings.ToLower(filepath.Ext(output)); ext == ".yaml" || ext == ".yml" {
			format = "yaml"
		}
	}

	var enc encoder
	switch format {
	case "json":
		enc = encodeJSON
	case "yaml":
		enc = encodeYAML
	default:
		return "", nil, errors.New("unknown format " + format + ", expected json or yaml")
	}

	if output == "" {
		output = strings.TrimSuffix(file, filepath.Ext(file)) + "." + format
	}
	return output, enc, nil
}
