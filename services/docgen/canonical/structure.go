// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package canonical

import (
	"sort"
	"time"
)

// StructureModule is a module or package detected by the structure parser.
type StructureModule struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language"`

	// Imports holds the raw import statements found in the module's files.
	Imports []string `json:"imports"`
}

// Class is a class (or equivalent composite type) found in source code.
type Class struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Methods []string `json:"methods"`
	Bases   []string `json:"bases"`

	// Docstring is the declaration's attached documentation, when present.
	Docstring string `json:"docstring,omitempty"`

	// Description is a generated explanation of the class's responsibility.
	// Populated only by the narration layer.
	Description string `json:"description,omitempty"`
}

// Function is a top-level function found in source code.
type Function struct {
	Name       string   `json:"name"`
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Parameters []string `json:"parameters"`
	IsAsync    bool     `json:"is_async"`

	Docstring  string `json:"docstring,omitempty"`
	ReturnType string `json:"return_type,omitempty"`

	// SourceSnippet is the first few lines of the body, retained as
	// narration context.
	SourceSnippet string `json:"source_snippet,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Entry point type values used across the structure and flow models.
const (
	EntryTypeMain        = "main"
	EntryTypeCLICommand  = "cli_command"
	EntryTypeAPIEndpoint = "api_endpoint"
	EntryTypeHandler     = "handler"
)

// StructureEntryPoint is an externally reachable surface detected during
// structure parsing: a main function, CLI command, route, or handler.
type StructureEntryPoint struct {
	Name string `json:"name"`
	Type string `json:"type"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// StructureSource records provenance for a structure parse.
type StructureSource struct {
	// Tool is the parser used (e.g. "tree-sitter").
	Tool string `json:"tool"`

	// Languages lists the languages that were parsed.
	Languages []string `json:"languages"`

	// FilesParsed counts files parsed successfully.
	FilesParsed int `json:"files_parsed"`

	// FilesFailed counts files skipped due to parse errors. Individual
	// file failures never abort a scan.
	FilesFailed int `json:"files_failed"`

	ParsedAt time.Time `json:"parsed_at"`
}

// Structure is the canonical code-structure report produced by structure
// parser adapters.
type Structure struct {
	Modules     []StructureModule     `json:"modules"`
	Classes     []Class               `json:"classes"`
	Functions   []Function            `json:"functions"`
	EntryPoints []StructureEntryPoint `json:"entry_points"`
	Source      *StructureSource      `json:"source,omitempty"`
}

// AddModule appends a module to the structure.
func (s *Structure) AddModule(m StructureModule) {
	s.Modules = append(s.Modules, m)
}

// AddClass appends a class to the structure.
func (s *Structure) AddClass(c Class) {
	s.Classes = append(s.Classes, c)
}

// AddFunction appends a function to the structure.
func (s *Structure) AddFunction(f Function) {
	s.Functions = append(s.Functions, f)
}

// AddEntryPoint appends an entry point to the structure.
func (s *Structure) AddEntryPoint(e StructureEntryPoint) {
	s.EntryPoints = append(s.EntryPoints, e)
}

// ClassesInFile returns all classes declared in the given file.
func (s *Structure) ClassesInFile(file string) []Class {
	var out []Class
	for _, c := range s.Classes {
		if c.File == file {
			out = append(out, c)
		}
	}
	return out
}

// FunctionsInFile returns all functions declared in the given file.
func (s *Structure) FunctionsInFile(file string) []Function {
	var out []Function
	for _, f := range s.Functions {
		if f.File == file {
			out = append(out, f)
		}
	}
	return out
}

// Languages returns the sorted set of unique module languages.
func (s *Structure) Languages() []string {
	seen := make(map[string]struct{})
	for _, m := range s.Modules {
		seen[m.Language] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
