// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonSample = `import os
from typing import Optional

class OrderService(BaseService):
    """Coordinates order placement."""

    def place(self, order):
        return order

    async def cancel(self, order_id):
        pass

def build_service(config: dict) -> OrderService:
    """Builds the service."""
    service = OrderService()
    return service

async def poll(timeout):
    pass

if __name__ == "__main__":
    build_service({})
`

const goSample = `package server

import (
	"fmt"
)

// Server handles inbound requests.
type Server struct {
	addr string
}

// Listen starts accepting connections.
func (s *Server) Listen() error {
	return nil
}

// NewServer builds a Server.
// The address must be non-empty.
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func main() {
	fmt.Println("up")
}
`

const jsSample = `import express from "express";

/**
 * Handles checkout requests.
 * Validates the cart first.
 */
class CheckoutController extends BaseController {
  handle(req, res) {
    return res;
  }
}

/** Creates the app. */
function createApp(config) {
  const app = express();
  return app;
}

async function warmCache(store) {
  return store;
}
`

const javaSample = `import java.util.List;

/** Entry point for the billing service. */
public class BillingApp extends AbstractApp {
    /** Starts the service. */
    public static void main(String[] args) {
        run(args);
    }

    public int charge(int amount) {
        return amount;
    }
}
`

func TestParsePython(t *testing.T) {
	result, err := parseFile(context.Background(), "orders/service.py", "python", []byte(pythonSample))
	require.NoError(t, err)

	assert.Equal(t, "service", result.module.Name)
	assert.Equal(t, "python", result.module.Language)
	assert.Equal(t, []string{"import os", "from typing import Optional"}, result.module.Imports)

	require.Len(t, result.classes, 1)
	class := result.classes[0]
	assert.Equal(t, "OrderService", class.Name)
	assert.Equal(t, []string{"BaseService"}, class.Bases)
	assert.Equal(t, "Coordinates order placement.", class.Docstring)
	assert.Equal(t, []string{"place", "cancel"}, class.Methods)

	require.Len(t, result.functions, 2)
	build := result.functions[0]
	assert.Equal(t, "build_service", build.Name)
	assert.Equal(t, []string{"config"}, build.Parameters)
	assert.Equal(t, "OrderService", build.ReturnType)
	assert.Equal(t, "Builds the service.", build.Docstring)
	assert.False(t, build.IsAsync)
	assert.Contains(t, build.SourceSnippet, "service = OrderService()")

	poll := result.functions[1]
	assert.Equal(t, "poll", poll.Name)
	assert.True(t, poll.IsAsync)

	require.Len(t, result.entryPoints, 1)
	assert.Equal(t, "__main__", result.entryPoints[0].Name)
	assert.Equal(t, "main", result.entryPoints[0].Type)
	assert.Equal(t, 21, result.entryPoints[0].Line)
}

func TestParseGo(t *testing.T) {
	result, err := parseFile(context.Background(), "server/server.go", "go", []byte(goSample))
	require.NoError(t, err)

	assert.Equal(t, "server", result.module.Name)
	require.Len(t, result.module.Imports, 1)
	assert.Contains(t, result.module.Imports[0], `"fmt"`)

	require.Len(t, result.classes, 1)
	class := result.classes[0]
	assert.Equal(t, "Server", class.Name)
	assert.Equal(t, "Server handles inbound requests.", class.Docstring)
	assert.Equal(t, []string{"Listen"}, class.Methods)

	require.Len(t, result.functions, 2)
	ctor := result.functions[0]
	assert.Equal(t, "NewServer", ctor.Name)
	assert.Equal(t, []string{"addr"}, ctor.Parameters)
	assert.Equal(t, "*Server", ctor.ReturnType)
	assert.Equal(t, "NewServer builds a Server. The address must be non-empty.", ctor.Docstring)

	assert.Equal(t, "main", result.functions[1].Name)
	require.Len(t, result.entryPoints, 1)
	assert.Equal(t, "main", result.entryPoints[0].Name)
	assert.Equal(t, "main", result.entryPoints[0].Type)
}

func TestParseJavaScript(t *testing.T) {
	result, err := parseFile(context.Background(), "src/checkout.js", "javascript", []byte(jsSample))
	require.NoError(t, err)

	require.Len(t, result.module.Imports, 1)
	assert.Contains(t, result.module.Imports[0], "express")

	require.Len(t, result.classes, 1)
	class := result.classes[0]
	assert.Equal(t, "CheckoutController", class.Name)
	assert.Equal(t, []string{"BaseController"}, class.Bases)
	assert.Equal(t, "Handles checkout requests. Validates the cart first.", class.Docstring)
	assert.Equal(t, []string{"handle"}, class.Methods)

	require.Len(t, result.functions, 2)
	create := result.functions[0]
	assert.Equal(t, "createApp", create.Name)
	assert.Equal(t, []string{"config"}, create.Parameters)
	assert.Equal(t, "Creates the app.", create.Docstring)
	assert.False(t, create.IsAsync)

	warm := result.functions[1]
	assert.Equal(t, "warmCache", warm.Name)
	assert.True(t, warm.IsAsync)
	assert.Empty(t, result.entryPoints)
}

func TestParseJava(t *testing.T) {
	result, err := parseFile(context.Background(), "src/BillingApp.java", "java", []byte(javaSample))
	require.NoError(t, err)

	require.Len(t, result.module.Imports, 1)
	assert.Contains(t, result.module.Imports[0], "java.util.List")

	require.Len(t, result.classes, 1)
	class := result.classes[0]
	assert.Equal(t, "BillingApp", class.Name)
	assert.Equal(t, []string{"AbstractApp"}, class.Bases)
	assert.Equal(t, "Entry point for the billing service.", class.Docstring)
	assert.Equal(t, []string{"main", "charge"}, class.Methods)

	require.Len(t, result.functions, 2)
	mainFn := result.functions[0]
	assert.Equal(t, "BillingApp.main", mainFn.Name)
	assert.Equal(t, []string{"args"}, mainFn.Parameters)
	assert.Equal(t, "void", mainFn.ReturnType)
	assert.Equal(t, "Starts the service.", mainFn.Docstring)

	charge := result.functions[1]
	assert.Equal(t, "BillingApp.charge", charge.Name)
	assert.Equal(t, "int", charge.ReturnType)

	require.Len(t, result.entryPoints, 1)
	assert.Equal(t, "BillingApp.main", result.entryPoints[0].Name)
	assert.Equal(t, "main", result.entryPoints[0].Type)
}

func TestExecuteWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(pythonSample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(goSample), 0o644))

	// Files under excluded directories must be ignored.
	excluded := filepath.Join(dir, "node_modules", "lib")
	require.NoError(t, os.MkdirAll(excluded, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(excluded, "dep.js"), []byte(jsSample), 0o644))

	// Invalid UTF-8 counts as a failure, not an abort.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.go"), []byte{0xff, 0xfe, 0x00, 0x01}, 0o644))

	adapter := New()
	structure, err := adapter.Execute(context.Background(), dir)
	require.NoError(t, err)

	require.NotNil(t, structure.Source)
	assert.Equal(t, "tree-sitter", structure.Source.Tool)
	assert.Equal(t, 2, structure.Source.FilesParsed)
	assert.Equal(t, 1, structure.Source.FilesFailed)
	assert.Equal(t, []string{"go", "python"}, structure.Source.Languages)
	assert.False(t, structure.Source.ParsedAt.IsZero())

	require.Len(t, structure.Modules, 2)
	assert.Equal(t, "app", structure.Modules[0].Name)
	assert.Equal(t, "main", structure.Modules[1].Name)
	assert.Equal(t, []string{"go", "python"}, structure.Languages())

	// Entry points from both files survive aggregation.
	names := make([]string, 0, len(structure.EntryPoints))
	for _, e := range structure.EntryPoints {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "__main__")
	assert.Contains(t, names, "main")
}

func TestExecuteHonorsExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(pythonSample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_app.py"), []byte(pythonSample), 0o644))

	generated := filepath.Join(dir, "generated")
	require.NoError(t, os.MkdirAll(generated, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(generated, "stubs.py"), []byte(pythonSample), 0o644))

	adapter := New(WithExcludePatterns([]string{"generated/**"}))
	adapter.AddExcludePatterns("test_*.py")

	structure, err := adapter.Execute(context.Background(), dir)
	require.NoError(t, err)

	require.NotNil(t, structure.Source)
	assert.Equal(t, 1, structure.Source.FilesParsed)
	require.Len(t, structure.Modules, 1)
	assert.Equal(t, "app", structure.Modules[0].Name)
}

func TestSplitExcludePatterns(t *testing.T) {
	dirs, globs := splitExcludePatterns([]string{
		"**/node_modules/**",
		"generated/**",
		"test_*.py",
		"**/*.min.js",
	})

	assert.Contains(t, dirs, "node_modules")
	assert.Contains(t, dirs, "generated")
	// Wildcard-only segments never become directory exclusions.
	assert.NotContains(t, dirs, "*.min.js")
	assert.Equal(t, []string{"test_*.py"}, globs)
}

func TestCheckAvailable(t *testing.T) {
	assert.True(t, New().CheckAvailable(context.Background()))
}

func TestStripPythonQuotes(t *testing.T) {
	cases := map[string]string{
		`"""Triple quoted."""`: "Triple quoted.",
		`'''Also triple.'''`:   "Also triple.",
		`"Single."`:            "Single.",
		`'Ticks.'`:             "Ticks.",
		`r"""Raw."""`:          "Raw.",
	}
	for input, want := range cases {
		assert.Equal(t, want, stripPythonQuotes(input), "input %q", input)
	}
}

func TestSupportedLanguages(t *testing.T) {
	assert.Equal(t, []string{"go", "java", "javascript", "python", "typescript"}, SupportedLanguages())
}
