// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

// Options controls which stages a run executes and how failures are
// handled. Zero value runs everything with errors collected rather than
// propagated.
type Options struct {
	// SkipSBOM bypasses the software bill of materials scan.
	SkipSBOM bool

	// SkipInfrastructure bypasses infrastructure diagram extraction.
	SkipInfrastructure bool

	// SkipStructure bypasses the source structure parse. Flow
	// documentation implicitly skips too, since it consumes the parse.
	SkipStructure bool

	// SkipDependencies bypasses the dependency manifest scan.
	SkipDependencies bool

	// SkipNarration bypasses generative narration; placeholder text
	// fills every section instead.
	SkipNarration bool

	// SkipFlowDocs bypasses module, entry-point, integration, and
	// diagram analysis.
	SkipFlowDocs bool

	// SkipCompression bypasses codebase compression. The holistic
	// overview implicitly skips too, since it consumes the compressed
	// content.
	SkipCompression bool

	// FailFast halts the run on the first stage error instead of
	// recording it and continuing.
	FailFast bool

	// ExcludePatterns are path globs withheld from compression and
	// structure analysis.
	ExcludePatterns []string

	// VerboseNarration logs full prompts and responses at debug level.
	VerboseNarration bool
}
