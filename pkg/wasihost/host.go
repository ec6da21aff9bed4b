// Package wasihost runs the WASI build of Luppolo (cmd/wasm/wasi) inside a
// wazero runtime, so programs can be executed in a sandbox without file
// system or network access.
//
// The module is compiled once by New. Every call to Run instantiates a
// fresh copy that reads one request from stdin and writes one response to
// stdout.
//
// # Example
//
//	wasm, _ := os.ReadFile("luppolo.wasm")
//	host, err := wasihost.New(ctx, wasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close(ctx)
//	result, err := host.Run(ctx, wasihost.Request{Source: src, Args: []string{"10"}})
package wasihost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Request is the input of one run.
type Request struct {
	Source   string   `json:"source"`
	Args     []string `json:"args,omitempty"`
	Optimize bool     `json:"optimize,omitempty"`
	Entry    string   `json:"entry,omitempty"`
}

// Response is the output of one run.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Host owns a wazero runtime and the compiled Luppolo module.
type Host struct {
	runtime wazero.Runtime
	module  wazero.CompiledModule
	logger  *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// New compiles wasm, the binary produced from cmd/wasm/wasi.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Host, error) {
	h := &Host{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	h.runtime = wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, h.runtime); err != nil {
		_ = h.runtime.Close(ctx)
		return nil, fmt.Errorf("wasihost: instantiate WASI: %w", err)
	}
	module, err := h.runtime.CompileModule(ctx, wasm)
	if err != nil {
		_ = h.runtime.Close(ctx)
		return nil, fmt.Errorf("wasihost: compile module: %w", err)
	}
	h.module = module
	return h, nil
}

// Run executes one request in a fresh module instance. A program failure is
// returned as an error carrying the module's message.
func (h *Host) Run(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	config := wazero.NewModuleConfig().
		WithName("").
		WithStdin(bytes.NewReader(payload)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := h.runtime.InstantiateModule(ctx, h.module, config)
	if mod != nil {
		defer mod.Close(ctx)
	}
	var exit *sys.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		h.logger.Debug("wasi module exited", "code", exit.ExitCode())
	default:
		return "", fmt.Errorf("wasihost: run module: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("wasihost: invalid response %q (stderr %q): %w", stdout.String(), stderr.String(), err)
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.Result, nil
}

// Close releases the runtime and every module it compiled.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}
