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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/repodoc/services/docgen/canonical"
)

// extractor accumulates structure facts for a single file.
type extractor struct {
	path    string
	content []byte

	imports     []string
	classes     []canonical.Class
	functions   []canonical.Function
	entryPoints []canonical.StructureEntryPoint

	goMethodsByType []goMethodRef
}

// text returns the source text spanned by a node.
func (e *extractor) text(node *sitter.Node) string {
	return string(e.content[node.StartByte():node.EndByte()])
}

// line returns a node's 1-based start line.
func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// snippet returns the first maxSnippetLines lines of a body node.
func (e *extractor) snippet(body *sitter.Node) string {
	lines := strings.Split(e.text(body), "\n")
	if len(lines) > maxSnippetLines {
		lines = lines[:maxSnippetLines]
	}
	return strings.Join(lines, "\n")
}

// childOfType returns the first direct child with the given node type.
func childOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// childrenOfType returns all direct children with the given node type.
func childrenOfType(node *sitter.Node, nodeType string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Python
// ---------------------------------------------------------------------------

func (e *extractor) visitPython(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case "import_statement", "import_from_statement":
			e.imports = append(e.imports, e.text(node))
		case "class_definition":
			e.pythonClass(node)
		case "function_definition":
			e.pythonFunction(node, false)
		case "decorated_definition":
			if fn := childOfType(node, "function_definition"); fn != nil {
				e.pythonFunction(fn, false)
			} else if cls := childOfType(node, "class_definition"); cls != nil {
				e.pythonClass(cls)
			}
		}
	}
}

func (e *extractor) pythonClass(node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		return
	}

	class := canonical.Class{
		Name: e.text(nameNode),
		File: e.path,
		Line: line(node),
	}

	if args := childOfType(node, "argument_list"); args != nil {
		for i := 0; i < int(args.ChildCount()); i++ {
			base := args.Child(i)
			if base.Type() == "identifier" || base.Type() == "attribute" {
				class.Bases = append(class.Bases, e.text(base))
			}
		}
	}

	if body := childOfType(node, "block"); body != nil {
		class.Docstring = e.pythonDocstring(body)
		for _, member := range childrenOfType(body, "function_definition") {
			if name := childOfType(member, "identifier"); name != nil {
				class.Methods = append(class.Methods, e.text(name))
			}
		}
		for _, decorated := range childrenOfType(body, "decorated_definition") {
			if member := childOfType(decorated, "function_definition"); member != nil {
				if name := childOfType(member, "identifier"); name != nil {
					class.Methods = append(class.Methods, e.text(name))
				}
			}
		}
	}

	e.classes = append(e.classes, class)
}

func (e *extractor) pythonFunction(node *sitter.Node, nested bool) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)

	fn := canonical.Function{
		Name:    name,
		File:    e.path,
		Line:    line(node),
		IsAsync: node.Child(0) != nil && node.Child(0).Type() == "async",
	}

	if params := childOfType(node, "parameters"); params != nil {
		for i := 0; i < int(params.ChildCount()); i++ {
			p := params.Child(i)
			switch p.Type() {
			case "identifier":
				fn.Parameters = append(fn.Parameters, e.text(p))
			case "typed_parameter", "default_parameter", "typed_default_parameter":
				if ident := childOfType(p, "identifier"); ident != nil {
					fn.Parameters = append(fn.Parameters, e.text(ident))
				}
			}
		}
	}

	if ret := childOfType(node, "type"); ret != nil {
		fn.ReturnType = e.text(ret)
	}

	if body := childOfType(node, "block"); body != nil {
		fn.Docstring = e.pythonDocstring(body)
		fn.SourceSnippet = e.snippet(body)
	}

	e.functions = append(e.functions, fn)

	if !nested && name == "main" {
		e.entryPoints = append(e.entryPoints, canonical.StructureEntryPoint{
			Name: "main",
			Type: canonical.EntryTypeMain,
			File: e.path,
			Line: line(node),
		})
	}
}

// pythonDocstring returns a block's leading docstring, unquoted.
func (e *extractor) pythonDocstring(body *sitter.Node) string {
	if body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" {
		return ""
	}
	str := childOfType(first, "string")
	if str == nil {
		return ""
	}
	return stripPythonQuotes(e.text(str))
}

// stripPythonQuotes removes surrounding string delimiters and leading
// string prefixes from a Python string literal.
func stripPythonQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return strings.TrimSpace(s)
}

// detectPythonMainGuard scans raw source for the module execution guard.
// The guard is a line-level idiom rather than a named declaration, so a
// text scan is more reliable than tree matching across quoting styles.
func (e *extractor) detectPythonMainGuard() {
	for i, raw := range strings.Split(string(e.content), "\n") {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "if __name__") && strings.Contains(trimmed, "__main__") {
			e.entryPoints = append(e.entryPoints, canonical.StructureEntryPoint{
				Name: "__main__",
				Type: canonical.EntryTypeMain,
				File: e.path,
				Line: i + 1,
			})
			return
		}
	}
}

// ---------------------------------------------------------------------------
// JavaScript / TypeScript
// ---------------------------------------------------------------------------

func (e *extractor) visitJavaScript(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case "import_statement":
			e.imports = append(e.imports, e.text(node))
		case "class_declaration":
			e.javascriptClass(node)
		case "function_declaration":
			e.javascriptFunction(node)
		case "export_statement":
			if cls := childOfType(node, "class_declaration"); cls != nil {
				e.javascriptClass(cls)
			} else if fn := childOfType(node, "function_declaration"); fn != nil {
				e.javascriptFunction(fn)
			}
		}
	}
}

func (e *extractor) javascriptClass(node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		nameNode = childOfType(node, "type_identifier")
	}
	if nameNode == nil {
		return
	}

	class := canonical.Class{
		Name:      e.text(nameNode),
		File:      e.path,
		Line:      line(node),
		Docstring: e.leadingBlockComment(node),
	}

	if heritage := childOfType(node, "class_heritage"); heritage != nil {
		for i := 0; i < int(heritage.ChildCount()); i++ {
			base := heritage.Child(i)
			if base.Type() == "identifier" || base.Type() == "member_expression" {
				class.Bases = append(class.Bases, e.text(base))
			}
			if base.Type() == "extends_clause" || base.Type() == "implements_clause" {
				for j := 0; j < int(base.ChildCount()); j++ {
					b := base.Child(j)
					if b.Type() == "identifier" || b.Type() == "type_identifier" || b.Type() == "member_expression" {
						class.Bases = append(class.Bases, e.text(b))
					}
				}
			}
		}
	}

	if body := childOfType(node, "class_body"); body != nil {
		for _, method := range childrenOfType(body, "method_definition") {
			if name := childOfType(method, "property_identifier"); name != nil {
				class.Methods = append(class.Methods, e.text(name))
			}
		}
	}

	e.classes = append(e.classes, class)
}

func (e *extractor) javascriptFunction(node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		return
	}

	fn := canonical.Function{
		Name:      e.text(nameNode),
		File:      e.path,
		Line:      line(node),
		IsAsync:   node.Child(0) != nil && node.Child(0).Type() == "async",
		Docstring: e.leadingBlockComment(node),
	}

	if params := childOfType(node, "formal_parameters"); params != nil {
		for i := 0; i < int(params.ChildCount()); i++ {
			p := params.Child(i)
			switch p.Type() {
			case "identifier":
				fn.Parameters = append(fn.Parameters, e.text(p))
			case "required_parameter", "optional_parameter", "assignment_pattern":
				if ident := childOfType(p, "identifier"); ident != nil {
					fn.Parameters = append(fn.Parameters, e.text(ident))
				}
			}
		}
	}

	if body := childOfType(node, "statement_block"); body != nil {
		fn.SourceSnippet = e.snippet(body)
	}

	e.functions = append(e.functions, fn)
}

// leadingBlockComment returns a JSDoc or Javadoc comment immediately
// preceding a declaration, with comment markers stripped and lines
// joined by single spaces.
func (e *extractor) leadingBlockComment(node *sitter.Node) string {
	target := node
	if parent := node.Parent(); parent != nil && parent.Type() == "export_statement" {
		target = parent
	}
	prev := target.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	raw := e.text(prev)
	if !strings.HasPrefix(raw, "/**") {
		return ""
	}
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimSuffix(raw, "*/")

	var parts []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(l)
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// ---------------------------------------------------------------------------
// Go
// ---------------------------------------------------------------------------

func (e *extractor) visitGo(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case "import_declaration":
			e.imports = append(e.imports, e.text(node))
		case "type_declaration":
			e.goType(node)
		case "function_declaration":
			e.goFunction(node)
		case "method_declaration":
			e.goMethod(node)
		}
	}
	e.attachGoMethods()
}

func (e *extractor) goType(node *sitter.Node) {
	for _, spec := range childrenOfType(node, "type_spec") {
		nameNode := childOfType(spec, "type_identifier")
		if nameNode == nil {
			continue
		}
		e.classes = append(e.classes, canonical.Class{
			Name:      e.text(nameNode),
			File:      e.path,
			Line:      line(node),
			Docstring: e.leadingLineComments(node),
		})
	}
}

func (e *extractor) goFunction(node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		if field := node.ChildByFieldName("name"); field != nil {
			nameNode = field
		} else {
			return
		}
	}
	name := e.text(nameNode)

	fn := canonical.Function{
		Name:      name,
		File:      e.path,
		Line:      line(node),
		Docstring: e.leadingLineComments(node),
	}

	if params := childOfType(node, "parameter_list"); params != nil {
		for _, decl := range childrenOfType(params, "parameter_declaration") {
			for _, ident := range childrenOfType(decl, "identifier") {
				fn.Parameters = append(fn.Parameters, e.text(ident))
			}
		}
	}

	fn.ReturnType = e.goReturnType(node)

	if body := childOfType(node, "block"); body != nil {
		fn.SourceSnippet = e.snippet(body)
	}

	e.functions = append(e.functions, fn)

	if name == "main" {
		e.entryPoints = append(e.entryPoints, canonical.StructureEntryPoint{
			Name: "main",
			Type: canonical.EntryTypeMain,
			File: e.path,
			Line: line(node),
		})
	}
}

// goMethod records a method declaration against its receiver type.
func (e *extractor) goMethod(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return
	}
	recvType := ""
	for _, decl := range childrenOfType(recv, "parameter_declaration") {
		if t := childOfType(decl, "type_identifier"); t != nil {
			recvType = e.text(t)
		} else if ptr := childOfType(decl, "pointer_type"); ptr != nil {
			if t := childOfType(ptr, "type_identifier"); t != nil {
				recvType = e.text(t)
			}
		}
	}
	if recvType == "" {
		return
	}
	e.goMethodsByType = append(e.goMethodsByType, goMethodRef{
		receiver: recvType,
		name:     e.text(nameNode),
	})
}

type goMethodRef struct {
	receiver string
	name     string
}

// attachGoMethods folds recorded method declarations into their
// receiver's class entry, in declaration order.
func (e *extractor) attachGoMethods() {
	for _, ref := range e.goMethodsByType {
		for i := range e.classes {
			if e.classes[i].Name == ref.receiver {
				e.classes[i].Methods = append(e.classes[i].Methods, ref.name)
				break
			}
		}
	}
}

// goReturnType extracts a single declared result type, when present.
func (e *extractor) goReturnType(node *sitter.Node) string {
	if result := node.ChildByFieldName("result"); result != nil {
		switch result.Type() {
		case "type_identifier", "pointer_type", "slice_type", "map_type", "qualified_type", "interface_type":
			return e.text(result)
		case "parameter_list":
			return e.text(result)
		}
	}
	// Fallback for grammars without the result field: the node after
	// the parameter list and before the block.
	params := childOfType(node, "parameter_list")
	if params == nil {
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != params && child.StartByte() > params.EndByte() {
			switch child.Type() {
			case "type_identifier", "pointer_type", "slice_type", "map_type", "qualified_type":
				return e.text(child)
			}
		}
	}
	return ""
}

// leadingLineComments collects the contiguous run of // comments
// directly above a declaration.
func (e *extractor) leadingLineComments(node *sitter.Node) string {
	var parts []string
	prev := node.PrevSibling()
	expectedRow := node.StartPoint().Row
	for prev != nil && prev.Type() == "comment" {
		if prev.EndPoint().Row+1 != expectedRow && prev.EndPoint().Row != expectedRow {
			break
		}
		raw := e.text(prev)
		if !strings.HasPrefix(raw, "//") {
			break
		}
		parts = append([]string{strings.TrimSpace(strings.TrimPrefix(raw, "//"))}, parts...)
		expectedRow = prev.StartPoint().Row
		prev = prev.PrevSibling()
	}
	return strings.Join(parts, " ")
}

// ---------------------------------------------------------------------------
// Java
// ---------------------------------------------------------------------------

func (e *extractor) visitJava(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case "import_declaration":
			e.imports = append(e.imports, e.text(node))
		case "class_declaration", "interface_declaration", "record_declaration":
			e.javaClass(node)
		}
	}
}

func (e *extractor) javaClass(node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	className := e.text(nameNode)

	class := canonical.Class{
		Name:      className,
		File:      e.path,
		Line:      line(node),
		Docstring: e.leadingBlockComment(node),
	}

	if super := childOfType(node, "superclass"); super != nil {
		for i := 0; i < int(super.ChildCount()); i++ {
			base := super.Child(i)
			if base.Type() == "type_identifier" || base.Type() == "generic_type" {
				class.Bases = append(class.Bases, e.text(base))
			}
		}
	}
	if interfaces := childOfType(node, "super_interfaces"); interfaces != nil {
		if list := childOfType(interfaces, "type_list"); list != nil {
			for i := 0; i < int(list.ChildCount()); i++ {
				base := list.Child(i)
				if base.Type() == "type_identifier" || base.Type() == "generic_type" {
					class.Bases = append(class.Bases, e.text(base))
				}
			}
		}
	}

	body := childOfType(node, "class_body")
	if body == nil {
		body = childOfType(node, "interface_body")
	}
	if body != nil {
		for _, method := range childrenOfType(body, "method_declaration") {
			e.javaMethod(className, &class, method)
		}
	}

	e.classes = append(e.classes, class)
}

// javaMethod records a method both on its class and as a qualified
// top-level function entry.
func (e *extractor) javaMethod(className string, class *canonical.Class, node *sitter.Node) {
	nameNode := childOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	methodName := e.text(nameNode)
	class.Methods = append(class.Methods, methodName)

	fn := canonical.Function{
		Name:      className + "." + methodName,
		File:      e.path,
		Line:      line(node),
		Docstring: e.leadingBlockComment(node),
	}

	if params := childOfType(node, "formal_parameters"); params != nil {
		for _, p := range childrenOfType(params, "formal_parameter") {
			if ident := childOfType(p, "identifier"); ident != nil {
				fn.Parameters = append(fn.Parameters, e.text(ident))
			}
		}
	}

	for _, rt := range []string{"type_identifier", "void_type", "integral_type", "boolean_type", "generic_type", "floating_point_type", "array_type"} {
		if t := childOfType(node, rt); t != nil {
			fn.ReturnType = e.text(t)
			break
		}
	}

	if body := childOfType(node, "block"); body != nil {
		fn.SourceSnippet = e.snippet(body)
	}

	e.functions = append(e.functions, fn)

	if methodName == "main" {
		e.entryPoints = append(e.entryPoints, canonical.StructureEntryPoint{
			Name: className + ".main",
			Type: canonical.EntryTypeMain,
			File: e.path,
			Line: line(node),
		})
	}
}
