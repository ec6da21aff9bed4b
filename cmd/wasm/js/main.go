//go:build js && wasm

// Command luppolo-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `luppolo` object with the following API:
//
//	luppolo.version()                  → string
//	luppolo.run(source, argsJSON)      → result string  (throws on error)
//	luppolo.compile(source)            → { run(argsJSON) → result, ir() → JSON }  (throws on error)
//
// argsJSON is a JSON array of argument strings such as ["10", "x"].
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o luppolo.wasm ./cmd/wasm/js/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/luppolo"
	"github.com/sandrolain/luppolo/pkg/expr"
	"github.com/sandrolain/luppolo/pkg/interpreter"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

// parseArgs decodes an optional JSON array of argument strings.
func parseArgs(fn string, args []js.Value, i int) []expr.Expr {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(args[i].String()), &raw); err != nil {
		jsThrow(fmt.Sprintf("%s: invalid arguments JSON: %v", fn, err))
	}
	out, err := interpreter.ParseArguments(raw)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: %v", fn, err))
	}
	return out
}

// jsRun implements luppolo.run(source, argsJSON) → result.
func jsRun(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("luppolo.run requires at least 1 argument: source (string)")
	}
	result, err := luppolo.Exec(context.Background(), args[0].String(), parseArgs("luppolo.run", args, 1))
	if err != nil {
		jsThrow(fmt.Sprintf("luppolo.run: %v", err))
	}
	return result.String()
}

// jsCompile implements luppolo.compile(source) → { run(argsJSON), ir() }.
func jsCompile(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("luppolo.compile requires 1 argument: source (string)")
	}
	engine := luppolo.New(luppolo.WithOptimize(true))
	prog, err := engine.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("luppolo.compile: %v", err))
	}

	runFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) interface{} {
		r, e := engine.Run(context.Background(), prog, parseArgs("compiled.run", innerArgs, 0)...)
		if e != nil {
			jsThrow(fmt.Sprintf("compiled.run: %v", e))
		}
		return r.String()
	})
	irFn := js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
		out, e := json.Marshal(prog)
		if e != nil {
			jsThrow(fmt.Sprintf("compiled.ir: %v", e))
		}
		return string(out)
	})

	return js.ValueOf(map[string]interface{}{"run": runFn, "ir": irFn})
}

func main() {
	api := map[string]interface{}{
		"run":     js.FuncOf(jsRun),
		"compile": js.FuncOf(jsCompile),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return luppolo.Version()
		}),
	}
	js.Global().Set("luppolo", js.ValueOf(api))

	// Block forever; the JS event loop owns execution from here.
	select {}
}
