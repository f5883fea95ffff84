// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flowdocs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestModuleDetector(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/orders/__init__.py", "")
	writeFile(t, dir, "src/orders/service.py", "import os\n")
	writeFile(t, dir, "cmd/server/main.go", "package main\n")
	writeFile(t, dir, "node_modules/lib/index.js", "module.exports = {}\n")
	writeFile(t, dir, "tests/test_service.py", "def test_ok(): pass\n")

	detector := NewModuleDetector(dir, nil)
	modules := detector.Detect(nil)

	require.Len(t, modules, 2)
	assert.Equal(t, "cmd/server", modules[0].Name)
	assert.Equal(t, "cmd/server", modules[0].Path)
	assert.Equal(t, "go", modules[0].Language)

	assert.Equal(t, "orders", modules[1].Name)
	assert.Equal(t, "src/orders", modules[1].Path)
	assert.Equal(t, "python", modules[1].Language)
	assert.Equal(t, []string{"src/orders/__init__.py", "src/orders/service.py"}, modules[1].Files)
}

func TestModuleDetectorEnrichment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders/service.py", "class OrderService: pass\n")

	structure := &canonical.Structure{
		Modules: []canonical.StructureModule{
			{Name: "service", Path: "orders/service.py", Language: "python", Imports: []string{"import billing"}},
		},
		Classes: []canonical.Class{
			{Name: "OrderService", File: "orders/service.py"},
			{Name: "OrderService", File: "orders/service.py"},
		},
		Functions: []canonical.Function{
			{Name: "place_order", File: "orders/service.py"},
		},
	}

	modules := NewModuleDetector(dir, nil).Detect(structure)
	require.Len(t, modules, 1)
	assert.Equal(t, []string{"OrderService"}, modules[0].Classes)
	assert.Equal(t, []string{"place_order"}, modules[0].Functions)
	assert.Equal(t, []string{"import billing"}, modules[0].Imports)
}

func TestDeriveModuleName(t *testing.T) {
	cases := map[string]string{
		".":               "root",
		"src/orders":      "orders",
		"pkg/api/users":   "api/users",
		"internal/db":     "db",
		"src":             "src",
		"services/orders": "services/orders",
	}
	for dir, want := range cases {
		assert.Equal(t, want, deriveModuleName(dir), "dir %q", dir)
	}
}

func TestSummarizeModulesCapsMembers(t *testing.T) {
	modules := []canonical.Module{
		{
			Name:      "orders",
			Path:      "src/orders",
			Language:  "python",
			Files:     []string{"a.py", "b.py"},
			Classes:   []string{"A", "B", "C", "D", "E", "F", "G"},
			Functions: []string{"f1", "f2"},
		},
	}
	summaries := SummarizeModules(modules)
	require.Len(t, summaries, 1)
	assert.Len(t, summaries[0].KeyClasses, 5)
	assert.Equal(t, []string{"f1", "f2"}, summaries[0].KeyFunctions)
	assert.Equal(t, 2, summaries[0].FileCount)
	assert.Empty(t, summaries[0].Responsibility)
}

func TestGraphBuilderFiltersExternalImports(t *testing.T) {
	structure := &canonical.Structure{
		Modules: []canonical.StructureModule{
			{
				Name: "cli", Path: "src/billing/cli.py", Language: "python",
				Imports: []string{
					"from billing.pipeline import run",
					"import requests",
				},
			},
			{
				Name: "pipeline", Path: "src/billing/pipeline.py", Language: "python",
				Imports: []string{"import os"},
			},
		},
	}

	graph := NewGraphBuilder(nil).Build(structure, nil)

	assert.Equal(t, []string{"billing/cli", "billing/pipeline"}, graph.Nodes)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, canonical.ImportEdge{From: "billing/cli", To: "billing/pipeline"}, graph.Edges[0])
}

func TestGraphBuilderGoInternalImports(t *testing.T) {
	structure := &canonical.Structure{
		Modules: []canonical.StructureModule{
			{
				Name: "main", Path: "cmd/server/main.go", Language: "go",
				Imports: []string{"import (\n\t\"fmt\"\n\t\"github.com/acme/app/store\"\n\t\"cmd/server\"\n)"},
			},
		},
	}

	graph := NewGraphBuilder(nil).Build(structure, nil)

	// Remote module paths (dotted first segment) never become edges.
	assert.Equal(t, []string{"cmd/server", "cmd/server/main"}, graph.Nodes)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "cmd/server", graph.Edges[0].To)
}

func TestNormalizeModulePath(t *testing.T) {
	cases := map[string]string{
		"src/billing/cli.py":          "billing/cli",
		"./lib/utils.ts":             "utils",
		"pkg/store/store.go":         "store/store",
		"orders/__init__.py":         "orders",
		"app/models/user.java":       "models/user",
		"README.md":                  "README.md",
		"":                           "",
	}
	for path, want := range cases {
		assert.Equal(t, want, normalizeModulePath(path), "path %q", path)
	}
}

func TestEntryPointDetector(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api.py", `from fastapi import FastAPI

app = FastAPI()

@app.get("/users")
def list_users():
    """List all users."""
    return []

if __name__ == "__main__":
    main()
`)
	writeFile(t, dir, "main.go", `package main

func main() {
	http.HandleFunc("/health", healthHandler)
}
`)
	writeFile(t, dir, "server.js", `const app = express();
app.post("/orders", createOrder);
exports.handler = async (event) => {};
`)

	points := NewEntryPointDetector(dir, nil).Detect()

	byName := make(map[string]canonical.EntryPoint)
	for _, ep := range points {
		byName[ep.Name] = ep
	}

	users, ok := byName["GET /users"]
	require.True(t, ok)
	assert.Equal(t, canonical.EntryTypeAPIEndpoint, users.Type)
	assert.Equal(t, "GET", users.Method)
	assert.Equal(t, "List all users.", users.Description)
	assert.Equal(t, 6, users.Line)

	guard, ok := byName["__main__"]
	require.True(t, ok)
	assert.Equal(t, canonical.EntryTypeMain, guard.Type)

	goMain, ok := byName["main"]
	require.True(t, ok)
	assert.Equal(t, "main.go", goMain.File)

	health, ok := byName["/health"]
	require.True(t, ok)
	assert.Equal(t, canonical.EntryTypeAPIEndpoint, health.Type)

	orders, ok := byName["POST /orders"]
	require.True(t, ok)
	assert.Equal(t, "POST", orders.Method)

	handler, ok := byName["handler"]
	require.True(t, ok)
	assert.Equal(t, canonical.EntryTypeHandler, handler.Type)
}

func TestEntryPointDetectorJavaSpring(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "UserController.java", `public class UserController {
    @GetMapping("/users")
    public List<User> list() { return users; }

    public static void main(String[] args) {}
}
`)

	points := NewEntryPointDetector(dir, nil).Detect()
	require.Len(t, points, 2)
	assert.Equal(t, "GET /users", points[0].Name)
	assert.Equal(t, "GET", points[0].Method)
	assert.Equal(t, "main", points[1].Name)
}

func TestIntegrationDetector(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cache.py", `import redis

client = redis.Redis(host="localhost")
client.set("k", "v")
`)
	writeFile(t, dir, "fetcher.py", `import requests

def fetch(url):
    return requests.get(url)
`)

	integrations := NewIntegrationDetector(dir, nil).Detect()

	require.Len(t, integrations, 2)
	// Sorted by type then name: cache before http.
	assert.Equal(t, "redis", integrations[0].Name)
	assert.Equal(t, canonical.IntegrationCache, integrations[0].Type)
	assert.Equal(t, []string{"cache.py"}, integrations[0].Locations)

	assert.Equal(t, "requests", integrations[1].Name)
	assert.Equal(t, canonical.IntegrationHTTP, integrations[1].Type)
	assert.Equal(t, []string{"fetcher.py"}, integrations[1].Locations)
}

func TestGenerateFlowchartFullDetail(t *testing.T) {
	graph := canonical.ImportGraph{
		Nodes: []string{"api/routes", "models/user", "services/orders", "utils/strings"},
		Edges: []canonical.ImportEdge{
			{From: "api/routes", To: "services/orders"},
			{From: "services/orders", To: "models/user"},
		},
	}

	diagram := GenerateFlowchart(graph, "")

	assert.False(t, diagram.Simplified)
	assert.Equal(t, 4, diagram.NodeCount)
	assert.Equal(t, DefaultDiagramTitle, diagram.Title)
	assert.Contains(t, diagram.Mermaid, "flowchart TD")
	assert.Contains(t, diagram.Mermaid, `api_routes(["routes"])`)
	assert.Contains(t, diagram.Mermaid, `models_user[["user"]]`)
	assert.Contains(t, diagram.Mermaid, `utils_strings("strings")`)
	assert.Contains(t, diagram.Mermaid, "api_routes --> services_orders")
}

func TestGenerateFlowchartEmptyGraph(t *testing.T) {
	diagram := GenerateFlowchart(canonical.ImportGraph{}, "Empty")
	assert.Equal(t, 0, diagram.NodeCount)
	assert.Contains(t, diagram.Mermaid, "No modules detected")
}

func TestGenerateFlowchartGroupsSubmodules(t *testing.T) {
	var nodes []string
	for i := 0; i < 8; i++ {
		nodes = append(nodes, fmt.Sprintf("pkg1/mod%d", i))
	}
	for i := 0; i < 8; i++ {
		nodes = append(nodes, fmt.Sprintf("pkg2/sub/x%d", i))
	}
	graph := canonical.ImportGraph{
		Nodes: nodes,
		Edges: []canonical.ImportEdge{
			{From: "pkg2/sub/x0", To: "pkg2/sub/x1"},
			{From: "pkg1/mod0", To: "pkg2/sub/x0"},
		},
	}

	diagram := GenerateFlowchart(graph, "Grouped")

	assert.True(t, diagram.Simplified)
	assert.Equal(t, 9, diagram.NodeCount)
	// Collapsing x0 -> x1 into pkg2/sub would self-loop, so it is dropped.
	assert.NotContains(t, diagram.Mermaid, "pkg2_sub --> pkg2_sub")
	assert.Contains(t, diagram.Mermaid, "pkg1_mod0 --> pkg2_sub")
}

func TestGenerateFlowchartCollapsesToTopLevel(t *testing.T) {
	var nodes []string
	for i := 0; i < 16; i++ {
		nodes = append(nodes, fmt.Sprintf("core/engine/n%d", i))
	}
	for i := 0; i < 12; i++ {
		nodes = append(nodes, fmt.Sprintf("web/http/n%d", i))
	}
	for i := 0; i < 5; i++ {
		nodes = append(nodes, fmt.Sprintf("tests/t%d", i))
	}
	graph := canonical.ImportGraph{
		Nodes: nodes,
		Edges: []canonical.ImportEdge{
			{From: "web/http/n0", To: "core/engine/n0"},
			{From: "tests/t0", To: "core/engine/n0"},
		},
	}

	diagram := GenerateFlowchart(graph, "Collapsed")

	assert.True(t, diagram.Simplified)
	assert.Equal(t, 2, diagram.NodeCount)
	assert.Contains(t, diagram.Mermaid, "web_http --> core_engine")
	assert.NotContains(t, diagram.Mermaid, "tests")
}

func TestGenerateFlowchartSimplificationBoundaries(t *testing.T) {
	threeSegmentNodes := func(count int) []string {
		var nodes []string
		for i := 0; i < count; i++ {
			nodes = append(nodes, fmt.Sprintf("app/sub%d/mod%d", i, i))
		}
		return nodes
	}

	t.Run("15 nodes render at full detail", func(t *testing.T) {
		diagram := GenerateFlowchart(canonical.ImportGraph{Nodes: threeSegmentNodes(15)}, "")

		assert.False(t, diagram.Simplified)
		assert.Equal(t, 15, diagram.NodeCount)
		assert.Contains(t, diagram.Mermaid, "app_sub0_mod0")
	})

	t.Run("16 nodes collapse to two segments", func(t *testing.T) {
		diagram := GenerateFlowchart(canonical.ImportGraph{Nodes: threeSegmentNodes(16)}, "")

		assert.True(t, diagram.Simplified)
		assert.Equal(t, 16, diagram.NodeCount)
		assert.Contains(t, diagram.Mermaid, "app_sub0")
		assert.NotContains(t, diagram.Mermaid, "app_sub0_mod0")
	})

	// Two-segment grouping keeps test packages; top-level collapsing
	// drops them. That difference pins the 30-node boundary.
	boundaryNodes := func(extra int) []string {
		var nodes []string
		for i := 0; i < 14; i++ {
			nodes = append(nodes, fmt.Sprintf("core/engine/n%d", i))
		}
		for i := 0; i < 14+extra; i++ {
			nodes = append(nodes, fmt.Sprintf("web/http/n%d", i))
		}
		nodes = append(nodes, "tests/t0", "tests/t1")
		return nodes
	}

	t.Run("30 nodes stay at two-segment grouping", func(t *testing.T) {
		diagram := GenerateFlowchart(canonical.ImportGraph{Nodes: boundaryNodes(0)}, "")

		assert.True(t, diagram.Simplified)
		assert.Equal(t, 4, diagram.NodeCount)
		assert.Contains(t, diagram.Mermaid, "tests_t0")
	})

	t.Run("31 nodes collapse to top level", func(t *testing.T) {
		diagram := GenerateFlowchart(canonical.ImportGraph{Nodes: boundaryNodes(1)}, "")

		assert.True(t, diagram.Simplified)
		assert.Equal(t, 2, diagram.NodeCount)
		assert.NotContains(t, diagram.Mermaid, "tests")
	})
}

func TestGenerateFlowchartByteStable(t *testing.T) {
	graph := canonical.ImportGraph{
		Nodes: []string{"a/b", "a/c", "d"},
		Edges: []canonical.ImportEdge{
			{From: "a/b", To: "d"},
			{From: "a/c", To: "d"},
		},
	}
	first := GenerateFlowchart(graph, "Stable")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Mermaid, GenerateFlowchart(graph, "Stable").Mermaid)
	}
}

func TestSanitizeNodeID(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeNodeID("a/b-c", 0))
	assert.Equal(t, "m3_3rdparty_lib", sanitizeNodeID("3rdparty/lib", 3))
	assert.Equal(t, "m7", sanitizeNodeID("", 7))
}
