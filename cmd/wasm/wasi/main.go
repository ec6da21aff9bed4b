//go:build wasip1

// Command luppolo-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "source": "<program>", "args": ["10", "x"], "optimize": false, "entry": "Main" }
//	stdout: { "result": "<expression>" }    on success
//	        { "error":  "<message>"    }    on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o luppolo.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"source":"Main(n) { return n^2 }","args":["7"]}' | wasmtime luppolo.wasm
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/interpreter"
)

type request struct {
	Source   string   `json:"source"`
	Args     []string `json:"args"`
	Optimize bool     `json:"optimize"`
	Entry    string   `json:"entry"`
}

type response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	args, err := interpreter.ParseArguments(req.Args)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}

	opts := []luppolo.Option{luppolo.WithOptimize(req.Optimize)}
	if req.Entry != "" {
		opts = append(opts, luppolo.WithEntry(req.Entry))
	}
	result, err := luppolo.Exec(context.Background(), req.Source, args, opts...)
	if err != nil {
		writeResponse(response{Error: err.Error()}, 1)
	}

	writeResponse(response{Result: result.String()}, 0)
}
